// Package emm implements the EMM sublayer (spec.md §4.2): the ordered
// procedure stack, the authentication/SMC/KSI policy engine, security
// context installation, UE capability handling, and the EMM procedures
// themselves. Grounded on UEEMMd in HdlrUES1.py.
package emm

import (
	"time"

	"github.com/epccore/mme-core/pkg/nas"
)

// Outcome is what a procedure produces after handling one event (an
// inbound message, a nested-child completion, or a timer expiry).
type Outcome struct {
	// Reply, if non-nil, is an outbound NAS message the procedure wants sent.
	Reply *nas.Message
	// Done reports whether the procedure has finished and should be popped.
	Done bool
}

// Procedure is the capability set every EMM procedure implements
// (spec.md §9 Design Note: "Model each procedure as a tagged variant
// implementing a small capability set").
type Procedure interface {
	// Name is the procedure's abbreviation, used for SMC-bypass and
	// re-auth-cadence policy lookups (e.g. "ATT", "TAU", "SER", "DET").
	Name() string
	// Filter is the set of inbound NAS kinds this procedure accepts while
	// it sits on top of the stack.
	Filter() map[nas.Kind]bool
	// Process advances the procedure's state machine on a matching inbound message.
	Process(m *nas.Message) (Outcome, error)
	// Postprocess resumes a parent procedure after a nested common
	// procedure (child) has completed.
	Postprocess(child Procedure) (Outcome, error)
	// Abort cancels the procedure's timer and marks it dropped.
	Abort()
	// Timer is the procedure's expiry timer value, or 0 if it has none.
	Timer() time.Duration
}

// Kind names the specific (non-common) UE-initiated procedures that may be
// pushed fresh onto an empty stack (spec.md §4.2 step 6).
type Kind int

const (
	KindAttach Kind = iota
	KindTAU
	KindServiceRequest
	KindExtServiceRequest
	KindCPServiceRequest
	KindDetachUE
)

// abbr maps a Kind to the ProcAbbrLUT-style abbreviation used by the
// re-auth-cadence and SMC-bypass policy lookups (HdlrUES1.py's ProcAbbrLUT).
var abbr = map[Kind]string{
	KindAttach:            "ATT",
	KindTAU:                "TAU",
	KindServiceRequest:     "SER",
	KindExtServiceRequest:  "SER",
	KindCPServiceRequest:   "SER",
	KindDetachUE:           "DET",
}

func (k Kind) Abbr() string { return abbr[k] }
