// cmd/activityscrapexter/main.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/ActivityScrapexter/internal/config"
	"github.com/valpere/ActivityScrapexter/internal/errors"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	debug      bool
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "activityscrapexter",
		Short: "Collect Gemini Apps activity history from a signed-in browser",
		Long: `ActivityScrapexter drives a browser through the Gemini Apps activity page,
captures the history responses the page loads while scrolling and exports the
entries that fall inside a date range.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "configuration file (YAML)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "show technical error details")

	root.AddCommand(
		newRunCmd(flags),
		newServeCmd(flags),
		newReportCmd(),
		newValidateCmd(flags),
		newTemplateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration named by --config, or the defaults.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	if flags.configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(flags *globalFlags, cfg *config.Config, w io.Writer) utils.Logger {
	level := utils.InfoLevel
	if cfg != nil {
		level = utils.ParseLogLevel(cfg.LogLevel)
	}
	if flags.debug {
		level = utils.DebugLevel
	}
	return utils.NewLoggerTo(w, level)
}

func newErrorService(flags *globalFlags, cfg *config.Config, logger utils.Logger) *errors.Service {
	retry := errors.DefaultRetryConfig()
	if cfg != nil {
		retry.MaxRetries = cfg.Retry.MaxRetries
		retry.BaseDelay = cfg.Retry.BaseDelay
		retry.MaxDelay = cfg.Retry.MaxDelay
	}
	return errors.NewService(retry, logger).WithVerbose(flags.verbose)
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		svc := errors.NewService(errors.DefaultRetryConfig(), utils.NewNopLogger()).WithVerbose(verbose)
		fmt.Fprint(os.Stderr, svc.FormatErrorForCLI(err))
		os.Exit(svc.GetExitCode(err))
	}
}
