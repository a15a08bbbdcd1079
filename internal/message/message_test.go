package message

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_String(t *testing.T) {
	m, err := Normalize(json.RawMessage(`"Your code is 1234"`), now)
	require.NoError(t, err)

	assert.Equal(t, "Your code is 1234", m.Body)
	assert.Equal(t, UnknownAddress, m.Address)
	assert.True(t, m.Timestamp.Equal(now))
	_, err = uuid.Parse(m.ID)
	assert.NoError(t, err, "generated id should be a uuid")
}

func TestNormalize_Object(t *testing.T) {
	raw := `{"id":"42","address":"+905551112233","body":"Kampanya!","timestamp":1700000000000,"read":1,"type":1}`
	m, err := Normalize(json.RawMessage(raw), now)
	require.NoError(t, err)

	assert.Equal(t, "42", m.ID)
	assert.Equal(t, "+905551112233", m.Address)
	assert.Equal(t, "Kampanya!", m.Body)
	assert.Equal(t, int64(1700000000000), m.Timestamp.UnixMilli())
	assert.True(t, m.Read)
	assert.Equal(t, 1, m.Type)
}

func TestNormalize_Defaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"null fields", `{"id":null,"address":null,"body":null,"timestamp":null}`},
		{"empty address and zero timestamp", `{"address":"","timestamp":0}`},
		{"null payload", `null`},
		{"empty payload", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Normalize(json.RawMessage(tt.raw), now)
			require.NoError(t, err)

			assert.Equal(t, "", m.Body)
			assert.Equal(t, UnknownAddress, m.Address)
			assert.True(t, m.Timestamp.Equal(now))
			assert.NotEmpty(t, m.ID)
			assert.False(t, m.Read)
		})
	}
}

func TestNormalize_TimestampForms(t *testing.T) {
	want := time.UnixMilli(1700000000123)

	tests := []struct {
		name string
		raw  string
	}{
		{"number", `{"timestamp":1700000000123}`},
		{"float number", `{"timestamp":1700000000123.0}`},
		{"numeric string", `{"timestamp":"1700000000123"}`},
		{"android date column", `{"date":1700000000123}`},
		{"rfc3339", `{"timestamp":"` + want.UTC().Format(time.RFC3339Nano) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Normalize(json.RawMessage(tt.raw), now)
			require.NoError(t, err)
			assert.Equal(t, want.UnixMilli(), m.Timestamp.UnixMilli())
		})
	}
}

func TestNormalize_NumericID(t *testing.T) {
	m, err := Normalize(json.RawMessage(`{"id":1017,"body":"x"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "1017", m.ID)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []string{
		`42`,
		`[1,2]`,
		`true`,
		`{"body":`,
		`{"body":5}`,
		`{"timestamp":"yesterday"}`,
		`{"timestamp":true}`,
		`{"read":"maybe"}`,
		`{"type":"sms"}`,
		`"unterminated`,
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(raw), now)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecode_Array(t *testing.T) {
	in := `  [ "first", {"body":"second","address":"BANK"}, null ]`
	msgs, err := Decode(strings.NewReader(in), now)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
	assert.Equal(t, "BANK", msgs[1].Address)
	assert.Equal(t, "", msgs[2].Body)
}

func TestDecode_Lines(t *testing.T) {
	in := "\"first\"\n\n{\"body\":\"second\"}\r\n  \n\"third\""
	msgs, err := Decode(strings.NewReader(in), now)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{msgs[0].Body, msgs[1].Body, msgs[2].Body})
}

func TestDecode_Empty(t *testing.T) {
	msgs, err := Decode(strings.NewReader(" \n\t"), now)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(`["ok", 7]`), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "element 1")

	_, err = Decode(strings.NewReader("\"ok\"\n{bad}\n"), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "line 2")

	_, err = Decode(strings.NewReader(`["unterminated"`), now)
	assert.ErrorIs(t, err, ErrMalformed)
}
