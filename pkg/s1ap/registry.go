package s1ap

import (
	"errors"
	"fmt"
)

// Procedure is a pending, MME-initiated class-1 S1AP procedure awaiting its
// successful/unsuccessful outcome.
type Procedure struct {
	Code ProcedureCode
	IEs  map[string]interface{}
}

var ErrDuplicateClass1Procedure = errors.New("s1ap: class-1 procedure already outstanding for this code")

// Registry is the per-UE S1AP procedure registry (spec.md §4.1, §5
// "Shared-resource policy"): a map from procedure code to pending
// procedure. Starting a second class-1 procedure on a code that already has
// one outstanding fails (no duplicate outstanding class-1 procedures per
// UE). Grounded on UES1d.Proc / init_s1ap_proc / _init_s1ap_proc in
// HdlrUES1.py.
type Registry struct {
	pending map[ProcedureCode]*Procedure
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[ProcedureCode]*Procedure)}
}

// InitProc starts a new MME-initiated (CN-initiated) S1AP procedure. Only
// class-1 procedures are tracked; class-2 procedures never occupy the
// registry since they have no outcome to await.
func (r *Registry) InitProc(code ProcedureCode, ies map[string]interface{}) (*Procedure, error) {
	if ClassOf(code) == Class1 {
		if _, exists := r.pending[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClass1Procedure, code)
		}
	}
	proc := &Procedure{Code: code, IEs: ies}
	if ClassOf(code) == Class1 {
		r.pending[code] = proc
	}
	return proc, nil
}

// Abort drops a pending procedure without waiting for its outcome (e.g. on
// UnsetRAN cascading cleanup).
func (r *Registry) Abort(code ProcedureCode) {
	delete(r.pending, code)
}

// Clear aborts every pending procedure, in no particular order (S1AP
// procedures don't nest the way EMM/ESM procedures do).
func (r *Registry) Clear() {
	r.pending = make(map[ProcedureCode]*Procedure)
}

// Dispatch classifies one inbound S1AP PDU per spec.md §4.1/§7:
//   - an eNB-initiated PDU (Outcome == OutcomeInitiating) is always
//     deliverable; the caller routes it by pdu.Code. ok=true, cause=nil.
//   - a CN-initiated response (successful/unsuccessful outcome) whose code
//     has no pending registry entry yields
//     CauseMessageNotCompatibleWithReceiverState; ok=false.
//   - a pending CN-initiated response completes and is removed from the
//     registry. ok=true, cause=nil.
func (r *Registry) Dispatch(pdu *PDU) (ok bool, cause *Cause) {
	if pdu.Outcome == OutcomeInitiating {
		return true, nil
	}
	if _, exists := r.pending[pdu.Code]; !exists {
		c := CauseMessageNotCompatibleWithReceiverState
		return false, &c
	}
	delete(r.pending, pdu.Code)
	return true, nil
}

// UnknownProcedureCause is the ErrorIndication cause for an inbound PDU
// whose procedure code the codec could not classify at all (spec.md §4.1:
// "unknown codes trigger an ErrorIndication with cause
// (protocol, abstract-syntax-error-reject)").
func UnknownProcedureCause() Cause {
	return CauseAbstractSyntaxErrorReject
}

// Pending reports whether a class-1 procedure is currently outstanding for code.
func (r *Registry) Pending(code ProcedureCode) bool {
	_, ok := r.pending[code]
	return ok
}
