// Package onnxmeta reads graph input and output declarations from ONNX model
// files without loading onnxruntime.
package onnxmeta

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed indicates the file is not a readable ONNX ModelProto.
var ErrMalformed = errors.New("onnxmeta: malformed model")

// Field numbers from onnx.proto.
const (
	modelIRVersion    = 1
	modelProducerName = 2
	modelGraph        = 7
	modelOpsetImport  = 8

	graphName        = 2
	graphInitializer = 5
	graphInput       = 11
	graphOutput      = 12

	tensorProtoName = 8

	valueInfoName = 1
	valueInfoType = 2

	typeTensorType = 1

	tensorTypeElemType = 1
	tensorTypeShape    = 2

	shapeDim = 1

	dimValue = 1
	dimParam = 2

	opsetDomain  = 1
	opsetVersion = 2
)

// ElemType is an ONNX TensorProto.DataType.
type ElemType int32

const (
	ElemUndefined ElemType = 0
	ElemFloat     ElemType = 1
	ElemInt32     ElemType = 6
	ElemInt64     ElemType = 7
	ElemFloat16   ElemType = 10
	ElemDouble    ElemType = 11
)

var elemTypeNames = map[ElemType]string{
	0: "undefined", 1: "float32", 2: "uint8", 3: "int8", 4: "uint16", 5: "int16",
	6: "int32", 7: "int64", 8: "string", 9: "bool", 10: "float16", 11: "float64",
	12: "uint32", 13: "uint64", 14: "complex64", 15: "complex128", 16: "bfloat16",
}

func (t ElemType) String() string {
	if name, ok := elemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("elem(%d)", int32(t))
}

// Dim is one tensor dimension: a fixed size or a symbolic name. Both empty
// means unknown.
type Dim struct {
	Value int64
	Param string
}

func (d Dim) String() string {
	switch {
	case d.Param != "":
		return d.Param
	case d.Value > 0:
		return fmt.Sprintf("%d", d.Value)
	default:
		return "?"
	}
}

// Tensor describes a graph input or output.
type Tensor struct {
	Name     string
	ElemType ElemType
	Shape    []Dim
}

// ShapeString formats the shape as [d0, d1, ...].
func (t Tensor) ShapeString() string {
	parts := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Model is the interface of an ONNX graph.
type Model struct {
	IRVersion    int64
	ProducerName string
	GraphName    string
	Opset        int64
	Inputs       []Tensor
	Outputs      []Tensor
}

// Inspect reads the graph interface of the model at path.
func Inspect(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes the graph interface from serialized ModelProto bytes.
// Graph inputs that are initializers (weights listed as inputs by IR
// versions before 4) are omitted.
func Parse(data []byte) (*Model, error) {
	m := &Model{}
	var graph []byte

	err := walk(data, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == modelIRVersion && typ == protowire.VarintType:
			m.IRVersion = int64(n)
		case num == modelProducerName && typ == protowire.BytesType:
			m.ProducerName = string(v)
		case num == modelGraph && typ == protowire.BytesType:
			graph = v
		case num == modelOpsetImport && typ == protowire.BytesType:
			domain, version, err := parseOpset(v)
			if err != nil {
				return err
			}
			if (domain == "" || domain == "ai.onnx") && version > m.Opset {
				m.Opset = version
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, fmt.Errorf("%w: no graph", ErrMalformed)
	}

	initializers := make(map[string]bool)
	var inputs []Tensor
	err = walk(graph, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case graphName:
			m.GraphName = string(v)
		case graphInitializer:
			name, err := parseInitializerName(v)
			if err != nil {
				return err
			}
			initializers[name] = true
		case graphInput, graphOutput:
			t, err := parseValueInfo(v)
			if err != nil {
				return err
			}
			if num == graphInput {
				inputs = append(inputs, t)
			} else {
				m.Outputs = append(m.Outputs, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range inputs {
		if !initializers[t.Name] {
			m.Inputs = append(m.Inputs, t)
		}
	}
	return m, nil
}

// InputNames returns the names of the graph inputs in declaration order.
func (m *Model) InputNames() []string {
	return names(m.Inputs)
}

// OutputNames returns the names of the graph outputs in declaration order.
func (m *Model) OutputNames() []string {
	return names(m.Outputs)
}

// ClassifierIO picks the tensors a sequence classifier is fed with and the
// logits output. Every int64 input is used. The output is the one named
// "logits" when present, otherwise the first float output.
func (m *Model) ClassifierIO() (inputs []string, output string, err error) {
	for _, t := range m.Inputs {
		if t.ElemType == ElemInt64 {
			inputs = append(inputs, t.Name)
		}
	}
	if len(inputs) == 0 {
		return nil, "", fmt.Errorf("model has no int64 inputs (inputs: %s)", strings.Join(m.InputNames(), ", "))
	}

	for _, t := range m.Outputs {
		if t.Name == "logits" {
			return inputs, t.Name, nil
		}
	}
	for _, t := range m.Outputs {
		if t.ElemType == ElemFloat {
			return inputs, t.Name, nil
		}
	}
	return nil, "", fmt.Errorf("model has no float32 output (outputs: %s)", strings.Join(m.OutputNames(), ", "))
}

func names(ts []Tensor) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}

// walk calls fn for every field of a serialized message. Bytes fields pass
// their payload in v; varint fields pass their value in n.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(tagLen))
		}
		b = b[tagLen:]

		var (
			v       []byte
			n       uint64
			consume int
		)
		switch typ {
		case protowire.BytesType:
			v, consume = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			n, consume = protowire.ConsumeVarint(b)
		default:
			consume = protowire.ConsumeFieldValue(num, typ, b)
		}
		if consume < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(consume))
		}
		b = b[consume:]

		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}
	return nil
}

func parseOpset(b []byte) (domain string, version int64, err error) {
	err = walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == opsetDomain && typ == protowire.BytesType:
			domain = string(v)
		case num == opsetVersion && typ == protowire.VarintType:
			version = int64(n)
		}
		return nil
	})
	return domain, version, err
}

func parseInitializerName(b []byte) (string, error) {
	var name string
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num == tensorProtoName && typ == protowire.BytesType {
			name = string(v)
		}
		return nil
	})
	return name, err
}

func parseValueInfo(b []byte) (Tensor, error) {
	var t Tensor
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case valueInfoName:
			t.Name = string(v)
		case valueInfoType:
			return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if num == typeTensorType && typ == protowire.BytesType {
					return parseTensorType(v, &t)
				}
				return nil
			})
		}
		return nil
	})
	return t, err
}

func parseTensorType(b []byte, t *Tensor) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == tensorTypeElemType && typ == protowire.VarintType:
			t.ElemType = ElemType(int32(n))
		case num == tensorTypeShape && typ == protowire.BytesType:
			return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
				if num != shapeDim || typ != protowire.BytesType {
					return nil
				}
				var d Dim
				err := walk(v, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
					switch {
					case num == dimValue && typ == protowire.VarintType:
						d.Value = int64(n)
					case num == dimParam && typ == protowire.BytesType:
						d.Param = string(v)
					}
					return nil
				})
				if err != nil {
					return err
				}
				t.Shape = append(t.Shape, d)
				return nil
			})
		}
		return nil
	})
}
