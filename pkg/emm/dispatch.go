package emm

import "github.com/epccore/mme-core/pkg/nas"

// StatusPolicy selects how an inbound EMMStatus is handled while the stack
// is non-empty (spec.md §4.2 step 3).
type StatusPolicy int

const (
	StatusIgnore    StatusPolicy = 0
	StatusAbortTop  StatusPolicy = 1
	StatusAbortAll  StatusPolicy = 2
)

// cause values for the two fixed EMMStatus replies the dispatcher itself
// produces (spec.md §4.2 steps 5 and 7).
const (
	CauseMessageNotCompatibleWithProtocolState uint8 = 98
	CauseMessageNotRecognized                  uint8 = 96
)

// ueInitiated maps the NAS kinds that may start a fresh procedure on an
// empty stack to the Kind that should be pushed (spec.md §4.2 step 6).
var ueInitiated = map[nas.Kind]Kind{
	nas.KindAttachRequest:      KindAttach,
	nas.KindTAURequest:         KindTAU,
	nas.KindServiceRequest:     KindServiceRequest,
	nas.KindExtServiceRequest:  KindExtServiceRequest,
	nas.KindCPServiceRequest:   KindCPServiceRequest,
	nas.KindDetachRequestMO:    KindDetachUE,
}

// Dispatcher implements the EMM routing algorithm (spec.md §4.2 "Routing").
type Dispatcher struct {
	Stack        *Stack
	StatusPolicy StatusPolicy

	// NewProcedure instantiates a fresh procedure of the given kind, ready
	// to be pushed and fed the triggering message.
	NewProcedure func(kind Kind) (Procedure, error)

	// AbortESM is the cross-layer link invoked when a Detach Request (MO)
	// arrives, so the ESM sublayer can abort its own procedures and clear
	// PDN contexts before Detach-UE starts (spec.md §4.2 step 2).
	AbortESM func()
}

// emmStatus builds the fixed-shape EMMStatus reply the dispatcher itself
// produces. The single payload byte is the EMM cause.
func emmStatus(cause uint8) *nas.Message {
	return &nas.Message{Kind: nas.KindEMMStatus, Payload: []byte{cause}}
}

// Dispatch routes one inbound EMM message per spec.md §4.2 "Routing" and
// returns the reply to send, or nil if nothing is to be sent yet.
func (d *Dispatcher) Dispatch(m *nas.Message) (*nas.Message, error) {
	// Step 1: security-exempt gate.
	if !m.Secure && !nas.IsSecurityExemptEMM(m.Kind) {
		return nil, nil
	}

	// Step 2: Detach Request (MO) aborts everything and restarts fresh.
	if m.Kind == nas.KindDetachRequestMO {
		d.Stack.Clear()
		if d.AbortESM != nil {
			d.AbortESM()
		}
		return d.startUEInitiated(KindDetachUE, m)
	}

	// Step 3: EMMStatus policy while a procedure is in progress.
	if !d.Stack.Empty() && m.Kind == nas.KindEMMStatus {
		switch d.StatusPolicy {
		case StatusAbortTop:
			d.Stack.AbortTop()
		case StatusAbortAll:
			d.Stack.Clear()
		}
		return nil, nil
	}

	// Step 4: feed the top procedure if it accepts this message, then
	// drain completed procedures via postprocess until a reply appears or
	// the stack empties.
	if top := d.Stack.Top(); top != nil && top.Filter()[m.Kind] {
		return d.drain(top, m)
	}

	// Step 5: a procedure is running but doesn't accept this message.
	if !d.Stack.Empty() {
		return emmStatus(CauseMessageNotCompatibleWithProtocolState), nil
	}

	// Step 6: start a fresh UE-initiated procedure.
	if kind, ok := ueInitiated[m.Kind]; ok {
		return d.startUEInitiated(kind, m)
	}
	if m.Kind == nas.KindIdentityResponse {
		// Spontaneous Identity Response with no procedure awaiting it:
		// nothing to route it to; treated as unrecognized (step 7).
		return emmStatus(CauseMessageNotRecognized), nil
	}

	// Step 7: nothing matched.
	return emmStatus(CauseMessageNotRecognized), nil
}

func (d *Dispatcher) startUEInitiated(kind Kind, m *nas.Message) (*nas.Message, error) {
	proc, err := d.NewProcedure(kind)
	if err != nil {
		return nil, err
	}
	d.Stack.Push(proc)
	return d.drain(proc, m)
}

// drain feeds m to proc, then — while proc completes with nothing to send
// and the stack still has a parent — resumes the parent via postprocess,
// stopping as soon as a reply is produced or the stack empties
// (spec.md §4.2 step 4).
func (d *Dispatcher) drain(proc Procedure, m *nas.Message) (*nas.Message, error) {
	out, err := proc.Process(m)
	if err != nil {
		return nil, err
	}
	return d.settle(proc, out)
}

// settle resolves the Outcome produced by finished, repeatedly handing a
// completed child up to its new-top parent's Postprocess until a reply
// appears or the stack empties (spec.md §4.2 step 4).
func (d *Dispatcher) settle(finished Procedure, out Outcome) (*nas.Message, error) {
	for {
		if out.Reply != nil {
			if out.Done {
				d.Stack.Pop()
			}
			return out.Reply, nil
		}
		if !out.Done {
			return nil, nil
		}
		d.Stack.Pop()
		parent := d.Stack.Top()
		if parent == nil {
			return nil, nil
		}
		child, err := parent.Postprocess(finished)
		if err != nil {
			return nil, err
		}
		finished = parent
		out = child
	}
}
