package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatienc/transcribe-cli/internal/app"
	"github.com/gatienc/transcribe-cli/internal/config"
	"github.com/gatienc/transcribe-cli/internal/logging"
)

// Handlers run the resolved commands. Tests replace them to observe parsing.
type Handlers struct {
	Record     func(ctx context.Context, cfg config.Config, opts app.RecordOptions) error
	Translate  func(ctx context.Context, cfg config.Config, opts app.TranslateOptions) error
	ChangeTone func(ctx context.Context, cfg config.Config, opts app.ChangeToneOptions) error
}

// DefaultHandlers wires the commands to the real application.
func DefaultHandlers() Handlers {
	return Handlers{
		Record:     app.RunRecord,
		Translate:  app.RunTranslate,
		ChangeTone: app.RunChangeTone,
	}
}

// NewRootCommand builds the command tree. Configuration is resolved once per
// invocation in PersistentPreRunE: defaults, then the JSON file, then the
// environment (and dotenv file), then explicitly set flags.
func NewRootCommand(h Handlers) *cobra.Command {
	var (
		cfg        config.Config
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:           "transcribe",
		Short:         "Record, transcribe, translate and rephrase with the Mistral API",
		Long:          "A CLI application for real-time audio transcription and translation using the Mistral API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a JSON config file")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file holding "+config.APIKeyEnv)
	fv := config.BindFlags(pf)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config '%s': %w", configPath, err)
		}
		if err := config.LoadEnv(&loaded, envFile); err != nil {
			return err
		}
		config.ApplyFlags(&loaded, cmd.Flags(), fv)
		if err := config.Validate(&loaded); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Configure(loaded.LogLevel, os.Stderr); err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	root.AddCommand(
		newRecordCommand(&cfg, h),
		newTranslateCommand(&cfg, h),
		newChangeToneCommand(&cfg, h),
		newInitConfigCommand(),
	)
	return root
}

func newRecordCommand(cfg *config.Config, h Handlers) *cobra.Command {
	var opts app.RecordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record audio and transcribe it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.Record(cmd.Context(), *cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.ToClipboard, "to-clipboard", false, "copy the transcription to the system clipboard")
	cmd.Flags().BoolVar(&opts.Paste, "paste", false, "paste the transcription into the focused window")
	return cmd
}

func newTranslateCommand(cfg *config.Config, h Handlers) *cobra.Command {
	var opts app.TranslateOptions
	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text using the Mistral API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Text = args[0]
			return h.Translate(cmd.Context(), *cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.TargetLanguage, "target-language", "English", "the language to translate the text into (e.g. 'French', 'Spanish')")
	return cmd
}

func newChangeToneCommand(cfg *config.Config, h Handlers) *cobra.Command {
	var opts app.ChangeToneOptions
	cmd := &cobra.Command{
		Use:   "change-tone <text>",
		Short: "Change the tone of a given text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Text = args[0]
			return h.ChangeTone(cmd.Context(), *cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.CustomTonePrompt, "custom-tone-prompt", "", "a prompt describing the desired tone (e.g. 'Rephrase this as an angry email')")
	_ = cmd.MarkFlagRequired("custom-tone-prompt")
	return cmd
}

func newInitConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write a config file with the default settings",
		Args:  cobra.ExactArgs(1),
		// Writing defaults needs no resolved configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.SaveDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default config written to %s\n", args[0])
			return nil
		},
	}
}
