package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cartoonify/internal/app"
	"cartoonify/internal/infra"
)

var (
	envFile  string
	logLevel string
	appCtx   *app.App
)

// Execute runs the CLI.
func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "cartoonify",
		Short:         "Turn photos into cartoon avatars",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			level := "warn"
			if os.Getenv("LOG_LEVEL") != "" {
				level = cfg.LogLevel
			}
			if logLevel != "" {
				level = logLevel
			}
			logger := infra.NewLogger(cfg.AppEnv, level).Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
			appCtx, err = app.New(cmd.Context(), cfg, logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx != nil {
				appCtx.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default .env when present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level written to stderr (default warn)")

	root.AddCommand(stylesCmd(), createCmd(), historyCmd(), galleryCmd(), unlockCmd(), subscribeCmd(), entitlementsCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
