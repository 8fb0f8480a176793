package pipeline

// rmtEntry maps an architectural register to the ROB tag of its most
// recent in-flight producer, if any.
type rmtEntry struct {
	valid  bool
	robTag int
}

// rmt is the Register Map Table: one entry per architectural register,
// r0..r66.
type rmt struct {
	entries [NumArchRegs]rmtEntry
}

func newRMT() *rmt {
	return &rmt{}
}

func (m *rmt) lookup(reg int) (tag int, valid bool) {
	e := m.entries[reg]
	return e.robTag, e.valid
}

// rename installs a new mapping unconditionally, overwriting any prior
// producer.
func (m *rmt) rename(reg, tag int) {
	m.entries[reg] = rmtEntry{valid: true, robTag: tag}
}

// clearIfStillMapped invalidates the mapping for reg only if it still
// points at tag; a later producer renamed in the meantime must not be
// clobbered.
func (m *rmt) clearIfStillMapped(reg, tag int) {
	if m.entries[reg].valid && m.entries[reg].robTag == tag {
		m.entries[reg].valid = false
	}
}
