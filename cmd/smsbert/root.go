package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	smsbert "github.com/usaproje/go-smsbert"
	"github.com/usaproje/go-smsbert/internal/config"
)

var (
	cfgFile   string
	activeCfg *config.Config

	// extraOptions is appended to every classifier built by the CLI.
	extraOptions []smsbert.Option
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "smsbert",
		Short:         "Classify SMS messages with a BERT model",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = &loaded
			setupLogger(cmd.ErrOrStderr(), loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(w io.Writer, levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg == nil {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return *activeCfg, nil
}

func newClassifier(cfg config.Config, opts ...smsbert.Option) (*smsbert.Classifier, error) {
	base, err := cfg.ClassifierOptions(slog.Default())
	if err != nil {
		return nil, err
	}
	base = append(base, opts...)
	base = append(base, extraOptions...)
	return smsbert.New(cfg.Paths.ModelPath, cfg.Paths.VocabPath, base...)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
	}
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}
