// Package cmd provides the CLI commands for ExpertScout.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/expertscout/expertscout/internal/config"
	"github.com/expertscout/expertscout/internal/logging"
	"github.com/expertscout/expertscout/internal/profiling"
	"github.com/expertscout/expertscout/internal/ui"
	"github.com/expertscout/expertscout/pkg/version"
)

var (
	configPath string
	debugMode  bool
	noColor    bool
	plainMode  bool

	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()

	loggingCleanup func()

	// cfg is resolved once in the persistent pre-run and shared by all
	// subcommands.
	cfg *config.Config
)

// NewRootCmd creates the root command for the expertscout CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expertscout",
		Short: "Adaptive expert search over local indexes",
		Long: `ExpertScout finds subject-matter experts with hybrid keyword and
semantic retrieval, trying learned search strategies until the result
quality is good enough.

Index a corpus with 'expertscout index', then search it:

  expertscout index experts experts.jsonl
  expertscout search "supply chain expert in southeast asia"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("expertscout version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .expertscout.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&plainMode, "plain", false, "Force plain output")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = setupRunEnvironment
	cmd.PersistentPostRunE = teardownRunEnvironment

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newFeedbackCmd())
	cmd.AddCommand(newStrategiesCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newMonitorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupRunEnvironment resolves configuration and installs the process
// logger before any subcommand runs.
func setupRunEnvironment(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: false,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return err
		}
	}
	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
				cpuCleanup = nil
			}
			return err
		}
	}
	return nil
}

func teardownRunEnvironment(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return err
		}
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// newPrinter builds the output printer for a command.
func newPrinter(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(plainMode),
		ui.WithNoColor(noColor)))
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
