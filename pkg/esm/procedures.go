package esm

import (
	"time"

	"github.com/epccore/mme-core/pkg/nas"
)

// DefaultBearerActivation drives Default EPS Bearer Context Activation
// (spec.md §4.3 step 7), seeded by a completed PDN-Connectivity transaction.
type DefaultBearerActivation struct {
	EBI     uint8
	PCO     []PCOElement
	aborted bool
}

func (p *DefaultBearerActivation) Name() string { return "DEFAULT_BEARER" }

func (p *DefaultBearerActivation) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{
		nas.KindDefaultBearerActivationAccept: true,
		nas.KindDefaultBearerActivationReject: true,
	}
}

func (p *DefaultBearerActivation) Process(m *nas.Message) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *DefaultBearerActivation) Abort()               { p.aborted = true }
func (p *DefaultBearerActivation) Timer() time.Duration { return T3485 }

// notSupported is the shared shape for Dedicated Bearer Activation,
// Modification and Deactivation transactions: spec.md §4.3 "the present
// core may stub them to not-supported but exposes the same dispatch
// structure."
type notSupported struct {
	name    string
	filter  map[nas.Kind]bool
	aborted bool
}

func (p *notSupported) Name() string              { return p.name }
func (p *notSupported) Filter() map[nas.Kind]bool { return p.filter }
func (p *notSupported) Process(m *nas.Message) (Outcome, error) {
	return Outcome{Done: true}, nil
}
func (p *notSupported) Abort()               { p.aborted = true }
func (p *notSupported) Timer() time.Duration { return T3486 }

// NewDedicatedBearerActivation returns the not-supported stub for dedicated
// bearer activation, keyed the same shape as DefaultBearerActivation.
func NewDedicatedBearerActivation() Procedure {
	return &notSupported{name: "DEDICATED_BEARER", filter: map[nas.Kind]bool{}}
}

// NewBearerModification returns the not-supported stub for bearer
// modification.
func NewBearerModification() Procedure {
	return &notSupported{
		name: "MODIFY_BEARER",
		filter: map[nas.Kind]bool{
			nas.KindBearerModificationAccept: true,
			nas.KindBearerModificationReject: true,
		},
	}
}

// NewBearerDeactivation returns the not-supported stub for bearer
// deactivation.
func NewBearerDeactivation() Procedure {
	return &notSupported{
		name:   "DEACTIVATE_BEARER",
		filter: map[nas.Kind]bool{nas.KindBearerDeactivationAccept: true},
	}
}

// InfoRequest runs ESM Information Request/Response on EBI 0, the reserved
// bearer-less EBI (spec.md §3).
type InfoRequest struct {
	OnResponse func(pco []byte)
	aborted    bool
}

func (p *InfoRequest) Name() string { return "ESM_INFO" }

func (p *InfoRequest) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{nas.KindESMInformationResponse: true}
}

func (p *InfoRequest) Process(m *nas.Message) (Outcome, error) {
	if p.OnResponse != nil {
		p.OnResponse(m.Payload)
	}
	return Outcome{Done: true}, nil
}

func (p *InfoRequest) Abort()               { p.aborted = true }
func (p *InfoRequest) Timer() time.Duration { return T3489 }
