package emm

// Capabilities is the UE's advertised (or, for null/emergency contexts,
// synthesized dummy) security capability set: one bit per EEA/EIA algorithm
// index 0-7 (spec.md §4.2 "Algorithm selection"). Grounded on
// Proc_SecurityModeControl.get_sec_algs / SMC_DUMMY_SECCAP in HdlrUES1.py.
type Capabilities struct {
	EEA [8]bool
	EIA [8]bool
}

// DummyCapabilities synthesizes a UE security capability set advertising
// EEA0-2/EIA0-2, used when a UE has no recorded capabilities yet a
// SecurityModeCommand must still be built — e.g. for an emergency attach
// that skips Identification (SPEC_FULL.md §C.1). Capabilities carries no
// GPRS (GEA) bits, so none are synthesized.
func DummyCapabilities() Capabilities {
	var c Capabilities
	for alg := 0; alg <= 2; alg++ {
		c.EEA[alg] = true
		c.EIA[alg] = true
	}
	return c
}

// SelectEEA picks the first algorithm in priority that the UE advertises
// support for, falling back to def if none match.
func (c Capabilities) SelectEEA(priority []int, def int) int {
	for _, alg := range priority {
		if alg >= 0 && alg < 8 && c.EEA[alg] {
			return alg
		}
	}
	return def
}

// SelectEIA picks the first integrity algorithm in priority that the UE
// advertises support for, falling back to def if none match.
func (c Capabilities) SelectEIA(priority []int, def int) int {
	for _, alg := range priority {
		if alg >= 0 && alg < 8 && c.EIA[alg] {
			return alg
		}
	}
	return def
}
