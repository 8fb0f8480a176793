package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sliceSource replays a fixed slice of trace records, the way a parsed
// trace file would but without any file I/O.
type sliceSource struct {
	recs []TraceRecord
	i    int
}

func (s *sliceSource) Next() (TraceRecord, bool, error) {
	if s.i >= len(s.recs) {
		return TraceRecord{}, false, nil
	}
	r := s.recs[s.i]
	s.i++
	return r, true, nil
}

// collectSink records every retirement in the order it was reported.
type collectSink struct {
	retired []Instruction
}

func (s *collectSink) WriteRetirement(in Instruction) error {
	s.retired = append(s.retired, in)
	return nil
}

func run(t *testing.T, params Params, recs []TraceRecord) (*collectSink, uint64, int) {
	t.Helper()
	sink := &collectSink{}
	p, err := New(params, &sliceSource{recs: recs}, sink)
	require.NoError(t, err)
	dyn, cycles, err := p.Run()
	require.NoError(t, err)
	return sink, dyn, cycles
}

func TestSingleIndependentInstruction(t *testing.T) {
	sink, dyn, cycles := run(t, Params{RobSize: 4, IqSize: 4, Width: 1}, []TraceRecord{
		{OpType: 0, Dest: 1, Src1: NoOperand, Src2: NoOperand},
	})

	require.EqualValues(t, 1, dyn)
	require.Equal(t, 9, cycles)
	require.Len(t, sink.retired, 1)

	in := sink.retired[0]
	require.Equal(t, StageTiming{StartCycle: 0, TotalCycles: 1}, in.FE)
	require.Equal(t, StageTiming{StartCycle: 1, TotalCycles: 1}, in.DE)
	require.Equal(t, StageTiming{StartCycle: 2, TotalCycles: 1}, in.RN)
	require.Equal(t, StageTiming{StartCycle: 3, TotalCycles: 1}, in.RR)
	require.Equal(t, StageTiming{StartCycle: 4, TotalCycles: 1}, in.DI)
	require.Equal(t, StageTiming{StartCycle: 5, TotalCycles: 1}, in.IS)
	require.Equal(t, StageTiming{StartCycle: 6, TotalCycles: 1}, in.EX)
	require.Equal(t, StageTiming{StartCycle: 7, TotalCycles: 1}, in.WB)
	require.Equal(t, StageTiming{StartCycle: 8, TotalCycles: 1}, in.RT)
}

func TestTwoIndependentInstructionsWidthTwo(t *testing.T) {
	sink, dyn, cycles := run(t, Params{RobSize: 4, IqSize: 4, Width: 2}, []TraceRecord{
		{OpType: 0, Dest: 1, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 2, Src1: NoOperand, Src2: NoOperand},
	})

	require.EqualValues(t, 2, dyn)
	require.Equal(t, 9, cycles)
	require.Len(t, sink.retired, 2)

	for i, in := range sink.retired {
		require.Equal(t, uint64(i), in.SeqNo)
		require.Equal(t, StageTiming{StartCycle: 0, TotalCycles: 1}, in.FE)
		require.Equal(t, StageTiming{StartCycle: 8, TotalCycles: 1}, in.RT)
	}
}

func TestRAWChainIssuesOnProducerWakeup(t *testing.T) {
	sink, dyn, cycles := run(t, Params{RobSize: 4, IqSize: 4, Width: 1}, []TraceRecord{
		{OpType: 0, Dest: 1, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 2, Src1: 1, Src2: NoOperand},
	})

	require.EqualValues(t, 2, dyn)
	require.Equal(t, 10, cycles)
	require.Len(t, sink.retired, 2)

	producer, consumer := sink.retired[0], sink.retired[1]
	require.Equal(t, uint64(0), producer.SeqNo)
	require.Equal(t, uint64(1), consumer.SeqNo)

	// the consumer trails the producer by exactly one cycle in every
	// stage: the bypass network lets it issue the instant the producer
	// completes, with no extra stall cycle for the dependency itself.
	require.Equal(t, producer.FE.StartCycle+1, consumer.FE.StartCycle)
	require.Equal(t, producer.IS.StartCycle+1, consumer.IS.StartCycle)
	require.Equal(t, producer.RT.StartCycle+1, consumer.RT.StartCycle)

	// the consumer's first source was unlocked by the producer's
	// completion, not left permanently ready from rename.
	require.Equal(t, "0 -1", consumer.DebugString())
}

func TestLatencyEscalationOpType(t *testing.T) {
	sink, _, _ := run(t, Params{RobSize: 4, IqSize: 4, Width: 1}, []TraceRecord{
		{OpType: 2, Dest: 1, Src1: NoOperand, Src2: NoOperand},
	})

	require.Len(t, sink.retired, 1)
	in := sink.retired[0]
	require.Equal(t, 5, in.EX.TotalCycles)
}

func TestROBFullBackpressureDelaysRename(t *testing.T) {
	// rob_size=1 forces the second instruction to wait in RN until the
	// first has retired and freed its slot.
	sink, dyn, _ := run(t, Params{RobSize: 1, IqSize: 4, Width: 1}, []TraceRecord{
		{OpType: 0, Dest: 1, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 2, Src1: NoOperand, Src2: NoOperand},
	})

	require.EqualValues(t, 2, dyn)
	require.Len(t, sink.retired, 2)

	first, second := sink.retired[0], sink.retired[1]
	require.Less(t, first.RT.StartCycle, second.RR.StartCycle)
}

func TestRMTOverwriteKeepsLatestProducer(t *testing.T) {
	// Two producers of r5 in program order; the consumer reading r5
	// must observe the second (most recent) producer, and only the
	// second producer's retirement may clear the RMT mapping.
	sink, _, _ := run(t, Params{RobSize: 8, IqSize: 8, Width: 1}, []TraceRecord{
		{OpType: 0, Dest: 5, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 5, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 1, Src1: 5, Src2: NoOperand},
	})

	require.Len(t, sink.retired, 3)
	consumer := sink.retired[2]
	// the consumer's source was unlocked by the second producer (seq 1),
	// not the first (seq 0).
	require.Equal(t, "1 -1", consumer.DebugString())
}

func TestUnsupportedOpTypeIsReported(t *testing.T) {
	sink := &collectSink{}
	p, err := New(Params{RobSize: 4, IqSize: 4, Width: 1}, &sliceSource{recs: []TraceRecord{
		{OpType: 7, Dest: 1, Src1: NoOperand, Src2: NoOperand},
	}}, sink)
	require.NoError(t, err)

	_, _, err = p.Run()
	require.Error(t, err)
}

func TestNewRejectsNonPositiveParams(t *testing.T) {
	sink := &collectSink{}
	_, err := New(Params{RobSize: 0, IqSize: 4, Width: 1}, &sliceSource{}, sink)
	require.Error(t, err)

	_, err = New(Params{RobSize: 4, IqSize: 0, Width: 1}, &sliceSource{}, sink)
	require.Error(t, err)

	_, err = New(Params{RobSize: 4, IqSize: 4, Width: 0}, &sliceSource{}, sink)
	require.Error(t, err)
}

func TestRunIsDeterministic(t *testing.T) {
	recs := []TraceRecord{
		{OpType: 0, Dest: 1, Src1: NoOperand, Src2: NoOperand},
		{OpType: 1, Dest: 2, Src1: 1, Src2: NoOperand},
		{OpType: 2, Dest: 3, Src1: NoOperand, Src2: 2},
	}

	sinkA, dynA, cyclesA := run(t, Params{RobSize: 4, IqSize: 4, Width: 2}, recs)
	sinkB, dynB, cyclesB := run(t, Params{RobSize: 4, IqSize: 4, Width: 2}, recs)

	require.Equal(t, dynA, dynB)
	require.Equal(t, cyclesA, cyclesB)
	require.Equal(t, sinkA.retired, sinkB.retired)
}

func TestRetirementOrderMatchesProgramOrder(t *testing.T) {
	sink, _, _ := run(t, Params{RobSize: 4, IqSize: 4, Width: 2}, []TraceRecord{
		{OpType: 2, Dest: 1, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 2, Src1: NoOperand, Src2: NoOperand},
		{OpType: 0, Dest: 3, Src1: NoOperand, Src2: NoOperand},
	})

	require.Len(t, sink.retired, 3)
	for i, in := range sink.retired {
		require.Equal(t, uint64(i), in.SeqNo)
	}
}
