package cmd

import (
	"FlowTagger/internal/config"
	"FlowTagger/internal/logging"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultConfigPath is read when present and --config is not given.
const defaultConfigPath = "configs/flow-tagger.yaml"

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
	stdout   io.Writer
	stderr   io.Writer
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	root := newRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "flow-tagger",
		Short: "Tag flow log records by destination port and protocol",
		Long: `flow-tagger classifies flow log records with a lookup table mapping
(destination port, protocol) pairs to tags, and reports how many records
matched each tag and each port/protocol combination.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: "+defaultConfigPath+" if present)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	root.AddCommand(newRunCommand(a), newConvertCommand(a), newHistoryCommand(a), newServeCommand(a))
	return root
}

// init loads the configuration and builds the logger before any subcommand runs.
func (a *app) init(*cobra.Command, []string) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = config.LoadConfig(a.cfgFile)
	} else {
		a.cfg, err = config.LoadOrDefault(defaultConfigPath)
	}
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}
	a.logger, err = logging.New(a.cfg.Logging)
	return err
}
