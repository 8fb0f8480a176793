package pipeline

import "strconv"

// NoOperand is the sentinel value for a dest/src register field that
// names no architectural register.
const NoOperand = -1

// NumArchRegs is the number of architectural registers, r0..r66.
const NumArchRegs = 67

// StageTiming is the (start-cycle, total-cycles) pair every stage
// records on exit, per the cycle-accounting rule: tc = (cycle+1) - sc.
type StageTiming struct {
	StartCycle int
	TotalCycles int
}

// Instruction is one dynamic instance of a trace record as it flows
// through the nine pipeline stages.
type Instruction struct {
	SeqNo  uint64
	OpType int
	ExLat  int

	DestOrig int
	Src1Orig int
	Src2Orig int

	// Dest/Src1/Src2 mirror the *Orig fields until rename. Rename sets
	// Dest to the allocated ROB tag, and a source to its producer's ROB
	// tag when the RMT holds a valid mapping; otherwise the source keeps
	// its architectural register number.
	Dest int
	Src1 int
	Src2 int

	DestReady bool
	Src1Ready bool
	Src2Ready bool

	FE, DE, RN, RR, DI, IS, EX, WB, RT StageTiming

	// exCounter tracks cycles spent in EXECUTE; separate from EX.TotalCycles
	// which is only finalized on stage exit.
	exCounter int

	// unlockBy1/unlockBy2 are debug-only: the seq_no of the producer whose
	// wakeup broadcast satisfied each source, mirroring the original C++
	// model's debug fields. Never part of the retirement line.
	unlockBy1 int64
	unlockBy2 int64
}

// DebugString reports which producers unlocked this instruction's
// sources, or -1 for a source no wakeup broadcast satisfied (it was
// never blocked, or the register-read ROB re-check found it ready). Exists so the
// wakeup/bypass invariant can be asserted directly in tests.
func (in *Instruction) DebugString() string {
	return strconv.FormatInt(in.unlockBy1, 10) + " " + strconv.FormatInt(in.unlockBy2, 10)
}
