// Package trace implements the simulator's thin peripheral collaborators:
// a line-oriented trace reader and a formatted retirement/summary
// writer. Neither belongs to the cycle-accurate core (spec places
// "trace file opening" and argument parsing out of core scope) but both
// are fully specified: the reader implements pipeline.TraceSource, the
// writer implements pipeline.RetirementSink.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ooosim/ooo-pipeline-sim/internal/pipeline"
)

// Reader parses one dynamic instruction per line from an io.Reader:
// "<pc-hex> <op_type-dec> <dest-dec> <src1-dec> <src2-dec>". pc is read
// and discarded.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r for line-oriented trace parsing.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next implements pipeline.TraceSource. It returns ok=false, err=nil at
// normal end of input.
func (r *Reader) Next() (pipeline.TraceRecord, bool, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return pipeline.TraceRecord{}, false, errors.Wrap(err, "reading trace")
		}
		return pipeline.TraceRecord{}, false, nil
	}
	r.line++

	fields := strings.Fields(r.scanner.Text())
	if len(fields) == 0 {
		return r.Next()
	}
	if len(fields) != 5 {
		return pipeline.TraceRecord{}, false, errors.Errorf("trace line %d: want 5 fields, got %d", r.line, len(fields))
	}

	// fields[0] is the pc; the spec discards it entirely.
	opType, err := strconv.Atoi(fields[1])
	if err != nil {
		return pipeline.TraceRecord{}, false, errors.Wrapf(err, "trace line %d: op_type", r.line)
	}
	dest, err := strconv.Atoi(fields[2])
	if err != nil {
		return pipeline.TraceRecord{}, false, errors.Wrapf(err, "trace line %d: dest", r.line)
	}
	src1, err := strconv.Atoi(fields[3])
	if err != nil {
		return pipeline.TraceRecord{}, false, errors.Wrapf(err, "trace line %d: src1", r.line)
	}
	src2, err := strconv.Atoi(fields[4])
	if err != nil {
		return pipeline.TraceRecord{}, false, errors.Wrapf(err, "trace line %d: src2", r.line)
	}

	for _, v := range [...]int{dest, src1, src2} {
		if v != pipeline.NoOperand && (v < 0 || v >= pipeline.NumArchRegs) {
			return pipeline.TraceRecord{}, false, fmt.Errorf("trace line %d: register %d out of range", r.line, v)
		}
	}

	return pipeline.TraceRecord{OpType: opType, Dest: dest, Src1: src1, Src2: src2}, true, nil
}
