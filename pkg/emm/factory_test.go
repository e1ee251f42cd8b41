package emm

import (
	"testing"

	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/nas"
)

type fakeVectors struct{ calls int }

func (f *fakeVectors) GetVector(imsi string) (*crypto.Vector, error) {
	f.calls++
	return &crypto.Vector{Kasme: [32]byte{1}}, nil
}

func attachFactory(sec *SecurityMap, vectors crypto.VectorProvider, stack *Stack) *Factory {
	return &Factory{
		IMSI:     "001010000000001",
		Security: sec,
		Vectors:  vectors,
		KDF:      crypto.StdlibKDF{},
		Policy:   Policy{SMCBypass: map[string]bool{}},
		Push:     stack.Push,
	}
}

// TestAttachRunsAuthenticationThenSMCBeforeAccept exercises spec.md's
// worked "clean attach" scenario end to end through the real Dispatcher:
// Attach Request -> Authentication -> SMC -> Attach Accept -> Attach Complete.
func TestAttachRunsAuthenticationThenSMCBeforeAccept(t *testing.T) {
	stack := &Stack{}
	sec := NewSecurityMap()
	vectors := &fakeVectors{}
	f := attachFactory(sec, vectors, stack)
	d := &Dispatcher{Stack: stack, NewProcedure: f.NewProcedure}

	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindAttachRequest, Secure: false})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAuthenticationRequest {
		t.Fatalf("expected AuthenticationRequest first, got %+v", reply)
	}
	if vectors.calls != 1 {
		t.Fatalf("expected one vector fetched, got %d", vectors.calls)
	}

	reply, err = d.Dispatch(&nas.Message{Kind: nas.KindAuthenticationResponse, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindSecurityModeCommand {
		t.Fatalf("expected SecurityModeCommand next, got %+v", reply)
	}
	if _, ksi := sec.Active(); ksi == nil {
		t.Fatal("expected a security context installed and active after authentication")
	}

	reply, err = d.Dispatch(&nas.Message{Kind: nas.KindSecurityModeComplete, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAttachAccept {
		t.Fatalf("expected AttachAccept once Authentication and SMC complete, got %+v", reply)
	}
	ctx, _ := sec.Active()
	if ctx.Knasenc == ([16]byte{}) {
		t.Fatal("expected CompleteSMC to have installed Knasenc")
	}

	reply, err = d.Dispatch(&nas.Message{Kind: nas.KindAttachComplete, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply != nil {
		t.Fatalf("AttachComplete should produce no reply, got %+v", reply)
	}
	if stack.Len() != 0 {
		t.Fatalf("expected stack empty after AttachComplete, got len=%d", stack.Len())
	}
}

// TestAttachSkipsAuthWhenKSIStillValid covers the no-reauth branch: Attach
// always re-authenticates under an enabled policy, so with authentication
// disabled and SMC bypassed for ATT, an Attach carrying a KSI the map
// already knows goes straight to Accept.
func TestAttachSkipsAuthWhenKSIStillValid(t *testing.T) {
	stack := &Stack{}
	sec := NewSecurityMap()
	ksi := uint8(3)
	sec.Set(ksi, &nas.Context{})
	sec.SetActive(ksi)

	f := &Factory{
		IMSI:     "001010000000001",
		Security: sec,
		Vectors:  &fakeVectors{},
		KDF:      crypto.StdlibKDF{},
		Policy:   Policy{AuthDisabled: true, SMCBypass: map[string]bool{"ATT": true}},
		Push:     stack.Push,
	}
	d := &Dispatcher{Stack: stack, NewProcedure: f.NewProcedure}

	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindAttachRequest, Secure: false, KSI: &ksi})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAttachAccept {
		t.Fatalf("expected AttachAccept immediately, got %+v", reply)
	}
}
