// Package esm implements the ESM sublayer (spec.md §4.3): per-EBI procedure
// stacks, the PDN-Connectivity transaction, PDN context lifecycle and
// Protocol Configuration Options processing. Grounded on UEESMd in
// HdlrUES1.py.
package esm

import "time"

// Cause codes returned by the PDN-Connectivity transaction (spec.md §4.3
// step 1/2/5).
const (
	CauseUnknownAPN            uint8 = 27
	CauseUnknownPDNType        uint8 = 28
	CauseIPv4OnlyAllowed       uint8 = 50
	CauseIPv6OnlyAllowed       uint8 = 51
	CauseMaxBearersReached     uint8 = 65
	CauseProtocolErrorUnspec   uint8 = 111
)

// ESM timer values (spec.md §4.2 "Per-procedure state machines" — the ESM
// counterparts).
const (
	T3485 = 8 * time.Second // Default/Dedicated Bearer Activation
	T3486 = 8 * time.Second // Bearer Modification
	T3489 = 4 * time.Second // ESM Information Request
	T3495 = 8 * time.Second // Bearer Deactivation
)

// PDNType is the requested or provisioned address family for a PDN.
type PDNType int

const (
	PDNTypeIPv4 PDNType = iota
	PDNTypeIPv6
	PDNTypeIPv4v6
)

// State is a PDN context's activation state (spec.md §3).
type State int

const (
	StateSuspended State = iota
	StateActive
)

// RABParameters mirrors the RAB-level fields of a PDN context (spec.md §3).
type RABParameters struct {
	QCI            uint8
	ARPPriority    uint8
	ARPPreemptCap  bool
	ARPPreemptVuln bool
	BitrateDL      uint64
	BitrateUL      uint64
	SGWTLA         string
	ENBTLA         string
	SGWTEID        uint32
	ENBTEID        uint32
}

// PDNContext is a single activated EBI (spec.md §3 "PDN Context").
type PDNContext struct {
	EBI     uint8
	APN     string
	Type    PDNType
	Addr    []byte
	RAB     RABParameters
	State   State
}

// StatusPolicy selects how an inbound ESMStatus is handled (spec.md §4.3
// "ESM Status can abort top / that stack / all stacks").
type StatusPolicy int

const (
	StatusIgnore   StatusPolicy = 0
	StatusAbortTop StatusPolicy = 1
	StatusAbortStack StatusPolicy = 2
	StatusAbortAll StatusPolicy = 3
)
