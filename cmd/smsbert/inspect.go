package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usaproje/go-smsbert/inference"
	"github.com/usaproje/go-smsbert/internal/onnxmeta"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [MODEL]",
		Short: "Print the inputs and outputs of an ONNX model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.ModelPath
			if len(args) == 1 {
				path = args[0]
			}

			m, err := onnxmeta.Inspect(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Model:    %s\n", path)
			_, _ = fmt.Fprintf(out, "Producer: %s\n", m.ProducerName)
			_, _ = fmt.Fprintf(out, "Graph:    %s\n", m.GraphName)
			_, _ = fmt.Fprintf(out, "IR:       %d  opset: %d\n\n", m.IRVersion, m.Opset)

			table := newTable(out, "KIND", "NAME", "TYPE", "SHAPE", "ROLE")
			for _, t := range m.Inputs {
				table.Append([]string{"input", t.Name, t.ElemType.String(), t.ShapeString(), inference.RoleOf(t.Name).String()})
			}
			for _, t := range m.Outputs {
				table.Append([]string{"output", t.Name, t.ElemType.String(), t.ShapeString(), ""})
			}
			table.Render()

			inputs, output, err := m.ClassifierIO()
			if err != nil {
				_, _ = fmt.Fprintf(out, "\nNot usable as a classifier: %v\n", err)
				return nil
			}
			_, _ = fmt.Fprintf(out, "\nClassifier inputs: %v  logits: %s\n", inputs, output)
			return nil
		},
	}
}
