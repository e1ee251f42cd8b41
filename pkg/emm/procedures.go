package emm

import (
	"time"

	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/nas"
)

// Common procedure timers (spec.md §4.2 "Per-procedure state machines").
const (
	T3460 = 6 * time.Second // Authentication, SecurityModeControl
	T3470 = 6 * time.Second // Identification
	T3450 = 6 * time.Second // GUTIReallocation
)

// AuthenticationProcedure runs EMM Authentication (spec.md §4.2), a common
// procedure nestable inside any specific procedure. Grounded on
// Proc_Authentication in HdlrUES1.py.
type AuthenticationProcedure struct {
	RAND, AUTN [16]byte
	KSI        uint8
	OnAccept   func(res []byte) (*nas.Context, error)
	aborted    bool
}

func (p *AuthenticationProcedure) Name() string { return "AUTH" }

func (p *AuthenticationProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{
		nas.KindAuthenticationResponse: true,
		nas.KindAuthenticationFailure:  true,
	}
}

func (p *AuthenticationProcedure) Process(m *nas.Message) (Outcome, error) {
	switch m.Kind {
	case nas.KindAuthenticationFailure:
		return Outcome{Done: true}, nil
	case nas.KindAuthenticationResponse:
		if p.OnAccept != nil {
			if _, err := p.OnAccept(m.Payload); err != nil {
				return Outcome{Done: true}, err
			}
		}
		return Outcome{Done: true}, nil
	}
	return Outcome{}, nil
}

func (p *AuthenticationProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *AuthenticationProcedure) Abort()               { p.aborted = true }
func (p *AuthenticationProcedure) Timer() time.Duration { return T3460 }

// SecurityModeControlProcedure runs EMM SecurityModeControl (spec.md §4.2).
// Grounded on Proc_SecurityModeControl in HdlrUES1.py.
type SecurityModeControlProcedure struct {
	EEA, EIA int
	OnComplete func()
	aborted    bool
}

func (p *SecurityModeControlProcedure) Name() string { return "SMC" }

func (p *SecurityModeControlProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{
		nas.KindSecurityModeComplete: true,
		nas.KindSecurityModeReject:   true,
	}
}

func (p *SecurityModeControlProcedure) Process(m *nas.Message) (Outcome, error) {
	if m.Kind == nas.KindSecurityModeComplete && p.OnComplete != nil {
		p.OnComplete()
	}
	return Outcome{Done: true}, nil
}

func (p *SecurityModeControlProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *SecurityModeControlProcedure) Abort()               { p.aborted = true }
func (p *SecurityModeControlProcedure) Timer() time.Duration { return T3460 }

// IdentificationProcedure requests an identity (typically IMSI) from the UE
// (spec.md §4.2). Grounded on Proc_Identification in HdlrUES1.py.
type IdentificationProcedure struct {
	OnResponse func(id []byte)
	aborted    bool
}

func (p *IdentificationProcedure) Name() string { return "IDENT" }

func (p *IdentificationProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{nas.KindIdentityResponse: true}
}

func (p *IdentificationProcedure) Process(m *nas.Message) (Outcome, error) {
	if p.OnResponse != nil {
		p.OnResponse(m.Payload)
	}
	return Outcome{Done: true}, nil
}

func (p *IdentificationProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *IdentificationProcedure) Abort()               { p.aborted = true }
func (p *IdentificationProcedure) Timer() time.Duration { return T3470 }

// GUTIReallocationProcedure reassigns a GUTI, either standalone or embedded
// in an Attach/TAU Accept (spec.md §4.2's "policy flag").
type GUTIReallocationProcedure struct {
	aborted bool
}

func (p *GUTIReallocationProcedure) Name() string { return "GUTI" }

func (p *GUTIReallocationProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{nas.KindGUTIReallocationComplete: true}
}

func (p *GUTIReallocationProcedure) Process(m *nas.Message) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *GUTIReallocationProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *GUTIReallocationProcedure) Abort()               { p.aborted = true }
func (p *GUTIReallocationProcedure) Timer() time.Duration { return T3450 }

// pendingStep is one queued common procedure an Attach or TAU must run
// before it may produce its Accept: the child to push, and the request to
// send that kicks it off.
type pendingStep struct {
	proc Procedure
	req  *nas.Message
}

// planAuthAndSMC computes the Authentication/SecurityModeControl steps an
// Attach or TAU procedure must run before accepting, by consulting
// RequireAuth/RequireSMC and installing the resulting security context via
// InstallFromVector/CompleteSMC — the decision UEEMMd.process makes in
// HdlrUES1.py before building ATTACH ACCEPT / TAU ACCEPT.
func planAuthAndSMC(kind Kind, imsi string, ksi *uint8, sec *SecurityMap, vectors crypto.VectorProvider, kdf crypto.KDF, policy Policy) ([]pendingStep, error) {
	var steps []pendingStep

	authNeeded := sec.RequireAuth(policy.Disabled, policy.AuthDisabled, policy.Cadence, kind, ksi)
	if authNeeded {
		vector, err := vectors.GetVector(imsi)
		if err != nil {
			return nil, err
		}
		newKSI := sec.GetNewKSI()
		auth := &AuthenticationProcedure{
			RAND: vector.RAND,
			AUTN: vector.AUTN,
			KSI:  newKSI,
			OnAccept: func(res []byte) (*nas.Context, error) {
				ctx := InstallFromVector(CTXNativeEPS, vector, kdf, policy.SNID)
				sec.Set(newKSI, ctx)
				sec.SetActive(newKSI)
				return ctx, nil
			},
		}
		req := &nas.Message{Kind: nas.KindAuthenticationRequest}
		req.Payload = append(append([]byte{}, vector.RAND[:]...), vector.AUTN[:]...)
		steps = append(steps, pendingStep{proc: auth, req: req})
	}

	// A planned Authentication installs and activates a context before SMC
	// runs, so SMC is then due whenever policy allows it for this procedure.
	smcAllowed := !policy.Disabled && !policy.SMCDisabled && !policy.SMCBypass[kind.Abbr()]
	if (authNeeded && smcAllowed) || sec.RequireSMC(policy.Disabled, policy.SMCDisabled, policy.SMCBypass, kind) {
		eea, eia := policy.EEA, policy.EIA
		smc := &SecurityModeControlProcedure{
			EEA: eea,
			EIA: eia,
			OnComplete: func() {
				if ctx, _ := sec.Active(); ctx != nil {
					CompleteSMC(ctx, kdf, eea, eia)
				}
			},
		}
		req := &nas.Message{Kind: nas.KindSecurityModeCommand, Payload: []byte{byte(eea), byte(eia)}}
		steps = append(steps, pendingStep{proc: smc, req: req})
	}

	return steps, nil
}

// AttachProcedure runs the specific EMM Attach procedure (spec.md §4.2): it
// nests Authentication and SecurityModeControl as common children, driven
// by the security policy engine, before producing AttachAccept. Grounded
// on Proc_Attach / UEEMMd.process in HdlrUES1.py.
type AttachProcedure struct {
	IMSI     string
	Security *SecurityMap
	Vectors  crypto.VectorProvider
	KDF      crypto.KDF
	Policy   Policy
	Push     func(Procedure)

	steps   []pendingStep
	started bool
	aborted bool
}

func (p *AttachProcedure) Name() string { return "ATT" }

func (p *AttachProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{nas.KindAttachComplete: true}
}

func (p *AttachProcedure) Process(m *nas.Message) (Outcome, error) {
	if m.Kind == nas.KindAttachComplete {
		return Outcome{Done: true}, nil
	}
	if !p.started && m.Kind == nas.KindAttachRequest {
		p.started = true
		steps, err := planAuthAndSMC(KindAttach, p.IMSI, m.KSI, p.Security, p.Vectors, p.KDF, p.Policy)
		if err != nil {
			return Outcome{}, err
		}
		p.steps = steps
		return p.advance(), nil
	}
	return Outcome{}, nil
}

// Postprocess resumes Attach once a nested common procedure (Authentication
// or SecurityModeControl) completes, producing AttachAccept once every
// required child has run.
func (p *AttachProcedure) Postprocess(child Procedure) (Outcome, error) {
	return p.advance(), nil
}

func (p *AttachProcedure) advance() Outcome {
	if len(p.steps) > 0 {
		step := p.steps[0]
		p.steps = p.steps[1:]
		if p.Push != nil {
			p.Push(step.proc)
		}
		return Outcome{Reply: step.req}
	}
	return Outcome{Reply: &nas.Message{Kind: nas.KindAttachAccept}}
}

func (p *AttachProcedure) Abort()               { p.aborted = true }
func (p *AttachProcedure) Timer() time.Duration { return 0 }

// TAUProcedure runs Tracking Area Update (spec.md §4.2), nesting
// Authentication/SecurityModeControl the same way AttachProcedure does.
// Grounded on Proc_TrackingAreaUpdate / UEEMMd.process in HdlrUES1.py.
type TAUProcedure struct {
	IMSI     string
	Security *SecurityMap
	Vectors  crypto.VectorProvider
	KDF      crypto.KDF
	Policy   Policy
	Push     func(Procedure)

	steps   []pendingStep
	started bool
	aborted bool
}

func (p *TAUProcedure) Name() string { return "TAU" }

func (p *TAUProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{nas.KindTAUComplete: true}
}

func (p *TAUProcedure) Process(m *nas.Message) (Outcome, error) {
	if m.Kind == nas.KindTAUComplete {
		return Outcome{Done: true}, nil
	}
	if !p.started && m.Kind == nas.KindTAURequest {
		p.started = true
		steps, err := planAuthAndSMC(KindTAU, p.IMSI, m.KSI, p.Security, p.Vectors, p.KDF, p.Policy)
		if err != nil {
			return Outcome{}, err
		}
		p.steps = steps
		return p.advance(), nil
	}
	return Outcome{}, nil
}

func (p *TAUProcedure) Postprocess(child Procedure) (Outcome, error) {
	return p.advance(), nil
}

func (p *TAUProcedure) advance() Outcome {
	if len(p.steps) > 0 {
		step := p.steps[0]
		p.steps = p.steps[1:]
		if p.Push != nil {
			p.Push(step.proc)
		}
		return Outcome{Reply: step.req}
	}
	return Outcome{Reply: &nas.Message{Kind: nas.KindTAUAccept}}
}

func (p *TAUProcedure) Abort()               { p.aborted = true }
func (p *TAUProcedure) Timer() time.Duration { return 0 }

// ServiceRequestProcedure runs Service Request / Extended Service Request /
// Control-Plane Service Request (spec.md §4.2); these share one shape and
// differ only in what triggers them and whether user data may ride along.
type ServiceRequestProcedure struct {
	kind    Kind
	aborted bool
}

func NewServiceRequestProcedure(kind Kind) *ServiceRequestProcedure {
	return &ServiceRequestProcedure{kind: kind}
}

func (p *ServiceRequestProcedure) Name() string { return p.kind.Abbr() }

func (p *ServiceRequestProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{}
}

func (p *ServiceRequestProcedure) Process(m *nas.Message) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *ServiceRequestProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *ServiceRequestProcedure) Abort()               { p.aborted = true }
func (p *ServiceRequestProcedure) Timer() time.Duration { return 0 }

// DetachProcedure runs network- or UE-initiated Detach (spec.md §4.2).
// Grounded on Proc_Detach in HdlrUES1.py.
type DetachProcedure struct {
	MTInitiated bool
	aborted     bool
}

func (p *DetachProcedure) Name() string { return "DET" }

func (p *DetachProcedure) Filter() map[nas.Kind]bool {
	if p.MTInitiated {
		return map[nas.Kind]bool{nas.KindDetachAccept: true}
	}
	return map[nas.Kind]bool{}
}

func (p *DetachProcedure) Process(m *nas.Message) (Outcome, error) {
	if !p.MTInitiated {
		return Outcome{Reply: &nas.Message{Kind: nas.KindDetachAccept}, Done: true}, nil
	}
	return Outcome{Done: true}, nil
}

func (p *DetachProcedure) Postprocess(Procedure) (Outcome, error) {
	return Outcome{Done: true}, nil
}

func (p *DetachProcedure) Abort()               { p.aborted = true }
func (p *DetachProcedure) Timer() time.Duration { return 0 }
