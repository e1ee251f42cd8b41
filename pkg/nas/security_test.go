package nas

import (
	"testing"

	"github.com/epccore/mme-core/pkg/crypto"
)

func freshContext() *Context {
	return &Context{
		EEA: crypto.Alg1,
		EIA: crypto.Alg2,
	}
}

func TestReconstructULCountWraparound(t *testing.T) {
	// UL sqn wrap from 0xFF to 0x00 increments the stored upper 24 bits by 1
	// (spec.md §8 Boundaries).
	got := ReconstructULCount(0xFF, 0x00)
	want := uint32(0x100)
	if got != want {
		t.Fatalf("ReconstructULCount wraparound: got %#x want %#x", got, want)
	}
}

func TestReconstructULCountNoWrap(t *testing.T) {
	got := ReconstructULCount(0x05, 0x10)
	if got != 0x10 {
		t.Fatalf("got %#x want 0x10", got)
	}
}

func TestVerifyAndDecipherRoundTrip(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{EnforceMAC: true, EnforceUL: true})

	ctx := freshContext()
	plaintext := []byte("attach complete")

	// Cipher the message and MAC the ciphertext as the UE would (uplink,
	// count 0), then feed the bytes through VerifyAndDecipher with a
	// matching UL count, to exercise MAC verify + decrypt.
	cipher, err := codec.Encrypt(ctx.Knasenc, ctx.EEA, crypto.DirectionUplink, 0, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	mac, err := codec.MACCompute(ctx.Knasint, ctx.EIA, crypto.DirectionUplink, 0, cipher)
	if err != nil {
		t.Fatalf("MACCompute: %v", err)
	}

	pdu := ProtectedPDU{SH: SHIntegrityCipher, MAC: mac, SQN: 0, Inner: cipher}
	inner, res, err := env.VerifyAndDecipher(pdu, ctx)
	if err != nil {
		t.Fatalf("VerifyAndDecipher: %v", err)
	}
	if !res.Secure {
		t.Fatalf("expected secure=true, got Result=%+v", res)
	}
	if string(inner) != string(plaintext) {
		t.Fatalf("got %q want %q", inner, plaintext)
	}
	if ctx.UL != 1 {
		t.Fatalf("expected UL count advanced to 1, got %d", ctx.UL)
	}
}

func TestVerifyAndDecipherMACFailureEnforced(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{EnforceMAC: true})
	ctx := freshContext()

	pdu := ProtectedPDU{SH: SHIntegrityCipher, MAC: 0xdeadbeef, SQN: 0, Inner: []byte("garbled")}
	inner, res, err := env.VerifyAndDecipher(pdu, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner != nil {
		t.Fatal("enforced MAC failure must drop the message")
	}
	if res.Err != ErrMACFailure {
		t.Fatalf("expected ErrMACFailure, got %v", res.Err)
	}
	if ctx.UL != 0 {
		t.Fatal("UL count must not advance on a dropped message")
	}
}

func TestUnknownKSIProducesErrUnknownKSI(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{EnforceUL: true})
	pdu := ProtectedPDU{SH: SHIntegrityCipher}
	_, res, err := env.VerifyAndDecipher(pdu, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Err != ErrUnknownKSI {
		t.Fatalf("expected ErrUnknownKSI, got %v", res.Err)
	}
}

func TestProtectSkipsPlaintextBypass(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{PlaintextBypass: map[Kind]bool{KindEMMStatus: true}})
	ctx := freshContext()
	sh, payload, _, _, ok, err := env.Protect(KindEMMStatus, []byte("status"), ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("bypassed message must not be protected")
	}
	if sh != SHPlain {
		t.Fatalf("expected SHPlain, got %v", sh)
	}
	if string(payload) != "status" {
		t.Fatal("bypassed payload must be unchanged")
	}
}

func TestProtectIncrementsDLCount(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{})
	ctx := freshContext()

	_, _, _, _, ok, err := env.Protect(KindAttachAccept, []byte("accept"), ctx, false)
	if err != nil || !ok {
		t.Fatalf("Protect failed: ok=%v err=%v", ok, err)
	}
	if ctx.DL != 1 {
		t.Fatalf("expected DL=1 after one send, got %d", ctx.DL)
	}
	_, _, _, _, ok, err = env.Protect(KindAttachAccept, []byte("accept2"), ctx, false)
	if err != nil || !ok {
		t.Fatalf("Protect failed: ok=%v err=%v", ok, err)
	}
	if ctx.DL != 2 {
		t.Fatalf("expected DL=2 after two sends, got %d", ctx.DL)
	}
}

func TestSecurityModeCommandUsesIntegrityOnlyNewContext(t *testing.T) {
	codec := crypto.StdlibKDF{}
	env := NewEnvelope(codec, Policy{})
	ctx := freshContext()
	sh, _, _, _, ok, err := env.Protect(KindSecurityModeCommand, []byte("smc"), ctx, true)
	if err != nil || !ok {
		t.Fatalf("Protect failed: ok=%v err=%v", ok, err)
	}
	if sh != SHIntegrityNewCtx {
		t.Fatalf("expected SH=3 for SMC, got %v", sh)
	}
}
