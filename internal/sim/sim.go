// Package sim orchestrates one batch run: it wires a trace.Reader and
// trace.Writer to a pipeline.Pipeline and reports the resulting
// statistics. Unlike the teacher's internal/simulator, which modeled
// several cores racing over goroutines, this orchestrator is
// single-threaded end to end, per spec §5 ("single-threaded and purely
// sequential... no operation suspends or blocks").
package sim

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ooosim/ooo-pipeline-sim/internal/pipeline"
	"github.com/ooosim/ooo-pipeline-sim/internal/trace"
)

// Statistics summarizes a completed run.
type Statistics struct {
	DynamicInstructionCount uint64
	Cycles                  int
	IPC                     float64
}

// Simulator binds a pipeline to its trace source/sink for one run.
type Simulator struct {
	params pipeline.Params
	reader *trace.Reader
	writer *trace.Writer
	logger zerolog.Logger
}

// New constructs a Simulator reading traceIn and writing header,
// retirement, and summary lines to out. seqWidth sets the minimum
// width of the retirement line's seq_no column (config.Defaults.
// OutputWidth); 0 leaves it unpadded.
func New(params pipeline.Params, traceIn io.Reader, out io.Writer, logger zerolog.Logger, seqWidth int) *Simulator {
	return &Simulator{
		params: params,
		reader: trace.NewReader(traceIn),
		writer: trace.NewWriter(out, seqWidth),
		logger: logger,
	}
}

// Run prints the header, drives the pipeline to completion streaming
// one retirement line per retired instruction, then prints the summary.
func (s *Simulator) Run(argv []string) (Statistics, error) {
	if err := s.writer.WriteHeader(argv, s.params); err != nil {
		return Statistics{}, errors.Wrap(err, "writing header")
	}

	pipe, err := pipeline.New(s.params, s.reader, s.writer)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "constructing pipeline")
	}

	s.logger.Debug().
		Int("rob_size", s.params.RobSize).
		Int("iq_size", s.params.IqSize).
		Int("width", s.params.Width).
		Msg("starting simulation")

	dynCount, cycles, err := pipe.Run()
	if err != nil {
		return Statistics{}, errors.Wrap(err, "running pipeline")
	}

	if err := s.writer.WriteSummary(dynCount, cycles); err != nil {
		return Statistics{}, errors.Wrap(err, "writing summary")
	}

	stats := Statistics{
		DynamicInstructionCount: dynCount,
		Cycles:                  cycles,
		IPC:                     float64(dynCount) / float64(cycles),
	}

	s.logger.Debug().
		Uint64("dynamic_count", stats.DynamicInstructionCount).
		Int("cycles", stats.Cycles).
		Float64("ipc", stats.IPC).
		Msg("simulation complete")

	return stats, nil
}
