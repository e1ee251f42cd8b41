package emm

import (
	"testing"
	"time"

	"github.com/epccore/mme-core/pkg/nas"
)

// fakeProc is a minimal Procedure test double.
type fakeProc struct {
	name      string
	filter    map[nas.Kind]bool
	processFn func(*nas.Message) (Outcome, error)
	postFn    func(Procedure) (Outcome, error)
	aborted   bool
}

func (f *fakeProc) Name() string               { return f.name }
func (f *fakeProc) Filter() map[nas.Kind]bool  { return f.filter }
func (f *fakeProc) Timer() time.Duration       { return 0 }
func (f *fakeProc) Abort()                     { f.aborted = true }
func (f *fakeProc) Process(m *nas.Message) (Outcome, error) {
	return f.processFn(m)
}
func (f *fakeProc) Postprocess(child Procedure) (Outcome, error) {
	if f.postFn != nil {
		return f.postFn(child)
	}
	return Outcome{Done: true}, nil
}

func TestDispatchDropsUnprotectedNonExemptMessage(t *testing.T) {
	d := &Dispatcher{Stack: &Stack{}}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindTAUComplete, Secure: false})
	if err != nil || reply != nil {
		t.Fatalf("expected silent drop, got reply=%+v err=%v", reply, err)
	}
}

func TestDispatchStartsFreshAttachOnEmptyStack(t *testing.T) {
	s := &Stack{}
	started := false
	d := &Dispatcher{
		Stack: s,
		NewProcedure: func(kind Kind) (Procedure, error) {
			started = true
			if kind != KindAttach {
				t.Fatalf("expected KindAttach, got %v", kind)
			}
			return &fakeProc{
				name:   "ATT",
				filter: map[nas.Kind]bool{nas.KindAttachComplete: true},
				processFn: func(m *nas.Message) (Outcome, error) {
					return Outcome{Reply: &nas.Message{Kind: nas.KindAttachAccept}}, nil
				},
			}, nil
		},
	}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindAttachRequest, Secure: false})
	if err != nil {
		t.Fatal(err)
	}
	if !started {
		t.Fatal("expected NewProcedure to be invoked")
	}
	if reply == nil || reply.Kind != nas.KindAttachAccept {
		t.Fatalf("expected AttachAccept reply, got %+v", reply)
	}
	if s.Len() != 1 {
		t.Fatalf("expected Attach left on stack awaiting AttachComplete, got len=%d", s.Len())
	}
}

func TestDispatchRejectsNonMatchingMessageWithStatus98(t *testing.T) {
	s := &Stack{}
	s.Push(&fakeProc{name: "TAU", filter: map[nas.Kind]bool{nas.KindTAUComplete: true}})
	d := &Dispatcher{Stack: s}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindIdentityResponse, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindEMMStatus || reply.Payload[0] != CauseMessageNotCompatibleWithProtocolState {
		t.Fatalf("expected status cause 98, got %+v", reply)
	}
}

func TestDispatchUnmatchedOnEmptyStackRepliesCause96(t *testing.T) {
	d := &Dispatcher{Stack: &Stack{}}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindEMMInformation, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Payload[0] != CauseMessageNotRecognized {
		t.Fatalf("expected status cause 96, got %+v", reply)
	}
}

func TestDispatchDetachClearsStackAndAbortsESM(t *testing.T) {
	s := &Stack{}
	s.Push(&fakeProc{name: "ATT", filter: map[nas.Kind]bool{}})
	esmAborted := false
	d := &Dispatcher{
		Stack:    s,
		AbortESM: func() { esmAborted = true },
		NewProcedure: func(kind Kind) (Procedure, error) {
			return &fakeProc{
				name: "DET",
				processFn: func(m *nas.Message) (Outcome, error) {
					return Outcome{Reply: &nas.Message{Kind: nas.KindDetachAccept}, Done: true}, nil
				},
			}, nil
		},
	}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindDetachRequestMO, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if !esmAborted {
		t.Fatal("expected cross-layer ESM abort to run")
	}
	if reply == nil || reply.Kind != nas.KindDetachAccept {
		t.Fatalf("expected DetachAccept reply, got %+v", reply)
	}
}

func TestDispatchDrainsThroughPostprocessUntilReply(t *testing.T) {
	s := &Stack{}
	parent := &fakeProc{
		name: "ATT",
		postFn: func(child Procedure) (Outcome, error) {
			return Outcome{Reply: &nas.Message{Kind: nas.KindAttachAccept}}, nil
		},
	}
	child := &fakeProc{
		name:   "AUTH",
		filter: map[nas.Kind]bool{nas.KindAuthenticationResponse: true},
		processFn: func(m *nas.Message) (Outcome, error) {
			return Outcome{Done: true}, nil
		},
	}
	s.Push(parent)
	s.Push(child)
	d := &Dispatcher{Stack: s}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindAuthenticationResponse, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAttachAccept {
		t.Fatalf("expected parent's postprocess reply to surface, got %+v", reply)
	}
	if s.Len() != 1 {
		t.Fatalf("expected only parent left on stack, got len=%d", s.Len())
	}
}
