package trace

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ooosim/ooo-pipeline-sim/internal/pipeline"
)

// Writer formats the command/config header, one line per retired
// instruction, and the final summary, exactly per spec §6.
type Writer struct {
	w        *bufio.Writer
	seqWidth int
}

// NewWriter wraps w for formatted simulator output. seqWidth pads the
// leading seq_no column to at least that many characters (right-
// aligned with spaces); 0 leaves it unpadded, the exact §6 format.
func NewWriter(w io.Writer, seqWidth int) *Writer {
	return &Writer{w: bufio.NewWriter(w), seqWidth: seqWidth}
}

// WriteHeader prints the command and configuration banner. Must be
// called before any retirement line.
func (w *Writer) WriteHeader(argv []string, params pipeline.Params) error {
	fmt.Fprintln(w.w, "# === Simulator Command =========")
	fmt.Fprintf(w.w, "# %s\n", strings.Join(argv, " "))
	fmt.Fprintln(w.w, "# === Processor Configuration ===")
	fmt.Fprintf(w.w, "# ROB_SIZE = %d\n", params.RobSize)
	fmt.Fprintf(w.w, "# IQ_SIZE  = %d\n", params.IqSize)
	fmt.Fprintf(w.w, "# WIDTH    = %d\n", params.Width)
	return w.w.Flush()
}

// WriteRetirement implements pipeline.RetirementSink, emitting exactly
// one formatted line per call.
func (w *Writer) WriteRetirement(in pipeline.Instruction) error {
	_, err := fmt.Fprintf(w.w,
		"%*d fu{%d} src{%d,%d} dst{%d} FE{%d,%d} DE{%d,%d} RN{%d,%d} RR{%d,%d} DI{%d,%d} IS{%d,%d} EX{%d,%d} WB{%d,%d} RT{%d,%d}\n",
		w.seqWidth, in.SeqNo, in.OpType, in.Src1Orig, in.Src2Orig, in.DestOrig,
		in.FE.StartCycle, in.FE.TotalCycles,
		in.DE.StartCycle, in.DE.TotalCycles,
		in.RN.StartCycle, in.RN.TotalCycles,
		in.RR.StartCycle, in.RR.TotalCycles,
		in.DI.StartCycle, in.DI.TotalCycles,
		in.IS.StartCycle, in.IS.TotalCycles,
		in.EX.StartCycle, in.EX.TotalCycles,
		in.WB.StartCycle, in.WB.TotalCycles,
		in.RT.StartCycle, in.RT.TotalCycles,
	)
	if err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteSummary prints the final dynamic-count/cycles/IPC banner.
func (w *Writer) WriteSummary(dynCount uint64, cycles int) error {
	ipc := float64(dynCount) / float64(cycles)
	fmt.Fprintln(w.w, "# === Simulation Results ========")
	fmt.Fprintf(w.w, "# Dynamic Instruction Count    = %d\n", dynCount)
	fmt.Fprintf(w.w, "# Cycles                       = %d\n", cycles)
	fmt.Fprintf(w.w, "# Instructions Per Cycle (IPC) = %.2f\n", ipc)
	return w.w.Flush()
}
