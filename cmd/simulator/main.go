package main

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ooosim/ooo-pipeline-sim/internal/config"
	"github.com/ooosim/ooo-pipeline-sim/internal/pipeline"
	"github.com/ooosim/ooo-pipeline-sim/internal/sim"
)

// ErrArgCount marks a malformed positional argument (cobra's
// ExactArgs(4) already catches wrong count; this also covers
// non-numeric rob_size/iq_size/width).
var ErrArgCount = errors.New("wrong or malformed argument")

// ErrFileOpen marks a trace file that could not be opened for reading.
var ErrFileOpen = errors.New("trace file open failed")

var defaultsPath string

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("simulation failed")
		os.Exit(1)
	}
}

func newRootCmd(logger zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ooo-sim rob_size iq_size width trace_file",
		Short:        "Cycle-accurate superscalar out-of-order pipeline simulator",
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, args, logger)
		},
	}
	cmd.Flags().StringVar(&defaultsPath, "defaults", "", "optional YAML file of ambient defaults (log level, output width)")
	return cmd
}

func runSimulation(cmd *cobra.Command, args []string, logger zerolog.Logger) error {
	defaults := config.DefaultConfig()
	if defaultsPath != "" {
		loaded, err := config.LoadDefaults(defaultsPath)
		if err != nil {
			return errors.Wrap(err, "loading defaults")
		}
		defaults = loaded
	}
	if level, err := zerolog.ParseLevel(defaults.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	params, err := parseParams(args[0], args[1], args[2])
	if err != nil {
		return err
	}

	traceFile := args[3]
	f, err := os.Open(traceFile)
	if err != nil {
		return errors.Wrapf(ErrFileOpen, "%s: %v", traceFile, err)
	}
	defer f.Close()

	s := sim.New(params, f, cmd.OutOrStdout(), logger, defaults.OutputWidth)

	argv := append([]string{cmd.Root().Name()}, args...)
	stats, err := s.Run(argv)
	if err != nil {
		return errors.Wrap(err, "running simulation")
	}

	logger.Debug().
		Uint64("dynamic_count", stats.DynamicInstructionCount).
		Int("cycles", stats.Cycles).
		Float64("ipc", stats.IPC).
		Msg("done")
	return nil
}

func parseParams(robArg, iqArg, widthArg string) (pipeline.Params, error) {
	robSize, err := strconv.Atoi(robArg)
	if err != nil {
		return pipeline.Params{}, errors.Wrapf(ErrArgCount, "rob_size: %v", err)
	}
	iqSize, err := strconv.Atoi(iqArg)
	if err != nil {
		return pipeline.Params{}, errors.Wrapf(ErrArgCount, "iq_size: %v", err)
	}
	width, err := strconv.Atoi(widthArg)
	if err != nil {
		return pipeline.Params{}, errors.Wrapf(ErrArgCount, "width: %v", err)
	}
	return pipeline.Params{RobSize: robSize, IqSize: iqSize, Width: width}, nil
}
