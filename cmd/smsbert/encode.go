package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usaproje/go-smsbert/internal/server"
	"github.com/usaproje/go-smsbert/tokenizer"
)

func newEncodeCmd() *cobra.Command {
	var (
		asJSON  bool
		showPad bool
	)

	cmd := &cobra.Command{
		Use:   "encode TEXT...",
		Short: "Show the model input for a text without running the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			vocab, err := tokenizer.LoadVocab(cfg.Paths.VocabPath)
			if err != nil {
				return err
			}
			tcfg := tokenizer.DefaultConfig()
			tcfg.MaxSeqLen = cfg.Tokenizer.MaxSeqLen
			tcfg.DoLowerCase = cfg.Tokenizer.DoLowerCase
			encoder, err := tokenizer.NewEncoder(vocab, tcfg)
			if err != nil {
				return err
			}

			enc := encoder.Encode(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(server.NewEncodeResponse(enc))
			}

			table := newTable(out, "POS", "TOKEN", "ID", "MASK")
			for i, id := range enc.InputIDs {
				if enc.AttentionMask[i] == 0 && !showPad {
					break
				}
				token, _ := vocab.Token(int(id))
				table.Append([]string{
					strconv.Itoa(i),
					token,
					strconv.FormatInt(id, 10),
					strconv.FormatInt(enc.AttentionMask[i], 10),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full encoding as JSON")
	cmd.Flags().BoolVar(&showPad, "pad", false, "Include padding positions")

	return cmd
}
