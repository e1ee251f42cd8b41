package s1ap

import "testing"

func TestInitProcRejectsDuplicateClass1(t *testing.T) {
	r := NewRegistry()
	if _, err := r.InitProc(ProcInitialContextSetup, nil); err != nil {
		t.Fatalf("first InitProc: %v", err)
	}
	if _, err := r.InitProc(ProcInitialContextSetup, nil); err == nil {
		t.Fatal("expected duplicate class-1 procedure to be rejected")
	}
}

func TestInitProcAllowsConcurrentClass2(t *testing.T) {
	r := NewRegistry()
	if _, err := r.InitProc(ProcDownlinkNASTransport, nil); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := r.InitProc(ProcDownlinkNASTransport, nil); err != nil {
		t.Fatalf("class-2 procedures should never collide: %v", err)
	}
}

func TestDispatchUnregisteredResponseYieldsCause(t *testing.T) {
	r := NewRegistry()
	pdu := &PDU{Code: ProcInitialContextSetup, Outcome: OutcomeSuccessful}
	ok, cause := r.Dispatch(pdu)
	if ok {
		t.Fatal("expected dispatch to fail for an unregistered response")
	}
	if cause == nil || *cause != CauseMessageNotCompatibleWithReceiverState {
		t.Fatalf("got cause %+v", cause)
	}
}

func TestDispatchCompletesPendingProcedure(t *testing.T) {
	r := NewRegistry()
	if _, err := r.InitProc(ProcInitialContextSetup, nil); err != nil {
		t.Fatal(err)
	}
	pdu := &PDU{Code: ProcInitialContextSetup, Outcome: OutcomeSuccessful}
	ok, cause := r.Dispatch(pdu)
	if !ok || cause != nil {
		t.Fatalf("expected dispatch success, got ok=%v cause=%+v", ok, cause)
	}
	if r.Pending(ProcInitialContextSetup) {
		t.Fatal("procedure must be removed from the registry once completed")
	}
	// A second duplicate InitProc must now be allowed again.
	if _, err := r.InitProc(ProcInitialContextSetup, nil); err != nil {
		t.Fatalf("expected InitProc to succeed after completion: %v", err)
	}
}

func TestDispatchAlwaysAcceptsInitiatingMessages(t *testing.T) {
	r := NewRegistry()
	pdu := &PDU{Code: ProcInitialUEMessage, Outcome: OutcomeInitiating}
	ok, cause := r.Dispatch(pdu)
	if !ok || cause != nil {
		t.Fatalf("expected initiating message to be deliverable, got ok=%v cause=%+v", ok, cause)
	}
}
