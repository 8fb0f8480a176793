// Package pipeline is the cycle-accurate core: the nine-stage state
// machine, the rename/dependency substrate (RMT + ROB + wakeup), the
// stage latches, and the cycle-advance termination condition. It
// consumes a TraceSource and produces one RetirementSink write per
// retired instruction, with no notion of command-line parsing, file
// I/O, or output formatting — those live in internal/trace and
// cmd/simulator.
package pipeline

import (
	"fmt"

	"github.com/ooosim/ooo-pipeline-sim/internal/core"
)

// Params are the three configuration knobs given on the command line: ROB
// capacity, issue-queue capacity, and pipeline width (the max number of
// instructions any stage may advance in one cycle).
type Params struct {
	RobSize int
	IqSize  int
	Width   int
}

// TraceRecord is one decoded line of trace input: the architectural
// operand fields (pc is read and discarded upstream).
type TraceRecord struct {
	OpType int
	Dest   int
	Src1   int
	Src2   int
}

// TraceSource yields decoded trace records in order. Next returns
// ok=false (no error) at normal end of trace.
type TraceSource interface {
	Next() (rec TraceRecord, ok bool, err error)
}

// RetirementSink receives one call per retired instruction, in program
// order.
type RetirementSink interface {
	WriteRetirement(Instruction) error
}

// Pipeline is the single in-flight pipeline instance: ROB, RMT, and the
// eight inter-stage latches (DE, RN, RR, DI, IQ, EX, WB, plus RETIRE's
// implicit ROB-head scan).
type Pipeline struct {
	params Params

	rob *rob
	rmt *rmt

	de, rn, rr, di, iq, ex, wb instrQueue

	cycle         int
	seqCounter    uint64
	traceDepleted bool
	pipelineEmpty bool

	source TraceSource
	sink   RetirementSink
}

// New constructs a pipeline bound to the given trace source and
// retirement sink.
func New(params Params, source TraceSource, sink RetirementSink) (*Pipeline, error) {
	if params.RobSize <= 0 {
		return nil, fmt.Errorf("rob_size must be positive, got %d", params.RobSize)
	}
	if params.IqSize <= 0 {
		return nil, fmt.Errorf("iq_size must be positive, got %d", params.IqSize)
	}
	if params.Width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", params.Width)
	}
	return &Pipeline{
		params: params,
		rob:    newROB(params.RobSize),
		rmt:    newRMT(),
		source: source,
		sink:   sink,
	}, nil
}

// Run drives the cycle loop to completion: RETIRE, WRITEBACK, EXECUTE,
// ISSUE, DISPATCH, REG_READ, RENAME, DECODE, FETCH, then advance the
// cycle counter, repeating (a post-tested loop — it executes at least
// one cycle) until the trace is depleted and the pipeline has drained.
// It returns the dynamic instruction count and the total cycle count.
func (p *Pipeline) Run() (uint64, int, error) {
	for {
		if err := p.retire(); err != nil {
			return 0, 0, err
		}
		p.writeback()
		p.execute()
		p.issue()
		p.dispatch()
		p.regRead()
		if err := p.rename(); err != nil {
			return 0, 0, err
		}
		p.decode()
		if err := p.fetch(); err != nil {
			return 0, 0, err
		}

		p.cycle++

		if p.traceDepleted && p.pipelineEmpty {
			break
		}
	}
	return p.seqCounter, p.cycle, nil
}

// fetch reads up to width trace records into DE. Acts only when the
// trace is not yet depleted and DE is empty (§4.1).
func (p *Pipeline) fetch() error {
	if p.traceDepleted || !p.de.empty() {
		return nil
	}

	for fetched := 0; fetched < p.params.Width; fetched++ {
		rec, ok, err := p.source.Next()
		if err != nil {
			return err
		}
		if !ok {
			p.traceDepleted = true
			return nil
		}

		unit, err := core.Lookup(rec.OpType)
		if err != nil {
			return err
		}

		in := Instruction{
			SeqNo:     p.seqCounter,
			OpType:    rec.OpType,
			ExLat:     unit.Latency,
			DestOrig:  rec.Dest,
			Src1Orig:  rec.Src1,
			Src2Orig:  rec.Src2,
			Dest:      rec.Dest,
			Src1:      rec.Src1,
			Src2:      rec.Src2,
			exCounter: 1,
			unlockBy1: -1,
			unlockBy2: -1,
		}
		in.FE = StageTiming{StartCycle: p.cycle, TotalCycles: 1}
		in.DE = StageTiming{StartCycle: p.cycle + 1}

		p.de.push(in)
		p.seqCounter++
	}
	return nil
}

// decode drains DE into RN in program order. Acts only when DE is
// non-empty and RN is empty (§4.2).
func (p *Pipeline) decode() {
	if p.de.empty() || !p.rn.empty() {
		return
	}
	for _, in := range p.de.drainAll() {
		in.DE.TotalCycles = (p.cycle + 1) - in.DE.StartCycle
		in.RN.StartCycle = p.cycle + 1
		p.rn.push(in)
	}
}

// rename drains RN into RR, allocating a ROB slot and renaming sources
// from the RMT for each instruction in program order. Acts only when RN
// is non-empty, RR is empty, and the ROB has room for the whole bundle
// (§4.3).
func (p *Pipeline) rename() error {
	if p.rn.empty() || !p.rr.empty() || p.rob.freeSlots() < p.rn.len() {
		return nil
	}

	for _, in := range p.rn.drainAll() {
		in.RN.TotalCycles = (p.cycle + 1) - in.RN.StartCycle
		in.RR.StartCycle = p.cycle + 1

		tag := p.rob.allocate(in.SeqNo, in.DestOrig)

		renameSource(p.rob, p.rmt, in.Src1Orig, &in.Src1, &in.Src1Ready)
		renameSource(p.rob, p.rmt, in.Src2Orig, &in.Src2, &in.Src2Ready)

		if in.DestOrig != NoOperand {
			p.rmt.rename(in.DestOrig, tag)
		}
		in.Dest = tag

		p.rr.push(in)
	}
	return nil
}

// renameSource resolves one source operand at rename time per §4.3.2:
// no-operand and invalid-RMT sources are immediately ready; a valid RMT
// mapping renames the source to its producer's ROB tag and is ready iff
// that producer has already written back.
func renameSource(r *rob, m *rmt, orig int, renamed *int, ready *bool) {
	if orig == NoOperand {
		*ready = true
		return
	}
	if tag, valid := m.lookup(orig); valid {
		*renamed = tag
		*ready = r.destReady(tag)
		return
	}
	*ready = true
}

// regRead drains RR into DI, re-checking source readiness against the
// ROB so writebacks that landed since rename are captured. Acts only
// when RR is non-empty and DI is empty (§4.4).
func (p *Pipeline) regRead() {
	if p.rr.empty() || !p.di.empty() {
		return
	}
	for _, in := range p.rr.drainAll() {
		in.RR.TotalCycles = (p.cycle + 1) - in.RR.StartCycle
		in.DI.StartCycle = p.cycle + 1

		if !in.Src1Ready && p.rob.destReady(in.Src1) {
			in.Src1Ready = true
		}
		if !in.Src2Ready && p.rob.destReady(in.Src2) {
			in.Src2Ready = true
		}

		p.di.push(in)
	}
}

// dispatch drains DI into the issue queue. Acts only when DI is
// non-empty and the issue queue has room for the whole bundle (§4.5).
func (p *Pipeline) dispatch() {
	if p.di.empty() || p.di.len() > (p.params.IqSize-p.iq.len()) {
		return
	}
	for _, in := range p.di.drainAll() {
		in.DI.TotalCycles = (p.cycle + 1) - in.DI.StartCycle
		in.IS.StartCycle = p.cycle + 1
		p.iq.push(in)
	}
}

// issue scans the issue queue in age order, selecting up to width ready
// instructions and moving them to EX, preserving program order among
// whatever remains (§4.6).
func (p *Pipeline) issue() {
	issued := 0
	var selected []int

	for i := range p.iq.items {
		if issued == p.params.Width {
			break
		}
		in := &p.iq.items[i]
		if !in.Src1Ready || !in.Src2Ready {
			continue
		}

		in.IS.TotalCycles = (p.cycle + 1) - in.IS.StartCycle
		in.EX.StartCycle = p.cycle + 1

		p.ex.push(*in)
		selected = append(selected, i)
		issued++
	}

	p.iq.removeIndices(selected)
}

// execute advances the per-op latency counter of every EX occupant.
// Instructions whose counter reaches ex_lat complete: they broadcast a
// wakeup to dependents still in IQ, DI, or RR and move to WB (§4.7).
func (p *Pipeline) execute() {
	var completed []int

	for i := range p.ex.items {
		in := &p.ex.items[i]
		if in.exCounter == in.ExLat {
			in.DestReady = true
			in.EX.TotalCycles = in.exCounter
			in.WB.StartCycle = p.cycle + 1

			p.wakeupDependents(in.Dest, in.SeqNo)

			completed = append(completed, i)
			continue
		}
		in.exCounter++
	}

	for _, i := range completed {
		p.wb.push(p.ex.items[i])
	}
	p.ex.removeIndices(completed)
}

// wakeupDependents sets the ready bit on every waiter in IQ, DI, or RR
// whose unsatisfied source names the completing ROB tag (§4.7 bypass).
func (p *Pipeline) wakeupDependents(tag int, unlocker uint64) {
	wake(&p.iq, tag, unlocker)
	wake(&p.di, tag, unlocker)
	wake(&p.rr, tag, unlocker)
}

func wake(q *instrQueue, tag int, unlocker uint64) {
	for i := range q.items {
		in := &q.items[i]
		if !in.Src1Ready && in.Src1 == tag {
			in.Src1Ready = true
			in.unlockBy1 = int64(unlocker)
		}
		if !in.Src2Ready && in.Src2 == tag {
			in.Src2Ready = true
			in.unlockBy2 = int64(unlocker)
		}
	}
}

// writeback drains WB, recording each instruction's final timing and
// writing the full record into its ROB slot — this is the single point
// where the ROB's own dest_ready bit is set (§3, §4.8).
func (p *Pipeline) writeback() {
	for _, in := range p.wb.drainAll() {
		in.WB.TotalCycles = (p.cycle + 1) - in.WB.StartCycle
		in.RT.StartCycle = p.cycle + 1
		p.rob.markWriteback(in.Dest, in)
	}
}

// retire pops up to width ready ROB-head entries in program order,
// emitting a timing record for each and clearing the RMT mapping if it
// still points at the retiring slot (§4.9).
func (p *Pipeline) retire() error {
	if p.pipelineEmpty {
		return nil
	}

	for retired := 0; retired < p.params.Width; retired++ {
		if !p.rob.headReady() {
			break
		}

		in, dest, tag := p.rob.retireHead()
		in.RT.TotalCycles = (p.cycle + 1) - in.RT.StartCycle

		if err := p.sink.WriteRetirement(in); err != nil {
			return err
		}

		if dest != NoOperand {
			p.rmt.clearIfStillMapped(dest, tag)
		}
	}

	if p.traceDepleted && p.rob.isEmpty() && p.de.empty() && p.rn.empty() {
		p.pipelineEmpty = true
	}
	return nil
}
