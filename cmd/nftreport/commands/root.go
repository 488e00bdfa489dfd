// Package commands implements the nftreport CLI.
package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nft-wallet-report/internal/app"
	"github.com/nft-wallet-report/internal/config"
	"github.com/nft-wallet-report/internal/logging"
)

var (
	logLevel  string
	logFormat string
	appCtx    *app.App
)

// releaseApp closes the application built by PersistentPreRunE
var releaseApp = (*app.App).Close

// Execute runs the root command
func Execute() error {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

// execute closes the application itself because cobra skips the post-run
// hooks when a subcommand returns an error.
func execute(args []string, out, errOut io.Writer) error {
	defer func() {
		if appCtx != nil {
			releaseApp(appCtx)
			appCtx = nil
		}
	}()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nftreport",
		Short:         "NFT wallet activity reports from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if logFormat != "" {
				cfg.Logging.Format = logFormat
			}
			logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
			logging.GetGlobalLogger().SetOutput(cmd.ErrOrStderr())

			// The CLI never archives its own invocations as chat commands.
			appCtx, err = app.New(cfg, logging.GetGlobalLogger(), app.Options{SkipArchive: true})
			return err
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	root.AddCommand(reportCmd(), commandCmd())
	return root
}
