package cli

import (
	"fmt"
	"os"

	"github.com/Swind/go-coop/core"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root cobra command for coopctl.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "coopctl",
		Short:        "Drive a cooperative task runtime",
		Long:         "coopctl runs demo workloads on a coop runtime, stresses its inbox and serves its metrics.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML runtime options file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the options file")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json); overrides the options file")

	root.AddCommand(
		newRunCmd(),
		newStressCmd(),
		newServeCmd(),
	)

	return root
}

// loadOptions reads --config when given and applies the logging flags on top.
func loadOptions() (core.Options, error) {
	opts := core.DefaultOptions()
	if flagConfig != "" {
		loaded, err := core.LoadOptions(flagConfig)
		if err != nil {
			return core.Options{}, err
		}
		opts = loaded
	}
	if flagLogLevel != "" {
		opts.LogLevel = flagLogLevel
	}
	if flagDebug {
		opts.LogLevel = "debug"
	}
	if flagLogFormat != "" {
		opts.LogFormat = flagLogFormat
	}
	return opts, nil
}

// newRuntime builds a runtime from the CLI options. Metrics may be nil.
func newRuntime(metrics core.Metrics) (*core.Runtime, core.Options, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, core.Options{}, fmt.Errorf("load options: %w", err)
	}
	cfg := opts.RuntimeConfig(os.Stderr)
	if metrics != nil {
		cfg.Metrics = metrics
	}
	cfg.RejectedTaskHandler = loggingRejections{logger: cfg.Logger}
	return core.NewRuntimeWithConfig(cfg), opts, nil
}

// loggingRejections routes rejected spawns to the runtime logger instead of stdout.
type loggingRejections struct {
	logger core.Logger
}

func (h loggingRejections) HandleRejectedTask(runtimeName string, taskName string, reason string) {
	h.logger.Debug("spawn refused", core.F("runtime", runtimeName), core.F("task", taskName), core.F("reason", reason))
}
