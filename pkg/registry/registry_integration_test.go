package registry

import (
	"testing"

	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/esm"
	"github.com/epccore/mme-core/pkg/nas"
)

// fakeRequestCodec stands in for the out-of-scope ESM inner-IE decoder
// (spec.md §1, Non-goals E): it hands back a fixed Request instead of
// parsing wire bytes, the same boundary-crossing shortcut factory_test.go
// takes for the EMM side.
type fakeRequestCodec struct{ apn string }

func (f fakeRequestCodec) DecodePDNConnectivityRequest(m *nas.Message) (esm.Request, error) {
	return esm.Request{APN: f.apn, Type: esm.PDNTypeIPv4v6, PTI: m.PTI}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Network: config.NetworkConfig{PLMN: "00101"},
		APNs: []config.APNConfig{
			{Name: "*", PDNType: "ipv4", IPv4Addr: "10.0.0.1", QCI: 9},
		},
	}
}

// TestNewUERoutesAttachThroughAuthSMCAcceptAndPDNConnectivity exercises the
// connection-accept path finding (e) flags as missing: a UEHandler built by
// the Registry (never a bare struct literal) carries real, non-nil
// EMMDispatch/ESMDispatch all the way through HandleUplinkNAS, matching
// spec.md's worked Scenario 1 (Attach -> Authentication -> SMC -> Identity
// elided here -> Accept -> Complete) followed by a PDN-Connectivity
// transaction over the freshly-accepted bearer.
func TestNewUERoutesAttachThroughAuthSMCAcceptAndPDNConnectivity(t *testing.T) {
	cfg := testConfig()
	r := New(cfg, "10.1.1.1", Collaborators{
		Vectors:       crypto.StaticVectorProvider{},
		KDF:           crypto.StdlibKDF{},
		SecurityCodec: crypto.StdlibKDF{},
		RequestCodec:  fakeRequestCodec{apn: "internet"},
		NASPolicy:     nas.PolicyFromConfig(cfg),
	})

	h := r.NewUE(1, "001010000000001")
	if h.EMMDispatch == nil || h.ESMDispatch == nil {
		t.Fatal("expected NewUE to hand back a handler with live dispatchers")
	}
	if got, ok := r.Lookup(1); !ok || got != h {
		t.Fatal("expected NewUE to register the handler it built")
	}

	reply, err := h.HandleUplinkNAS(&nas.Message{Kind: nas.KindAttachRequest, Secure: false})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAuthenticationRequest {
		t.Fatalf("expected AuthenticationRequest, got %+v", reply)
	}

	reply, err = h.HandleUplinkNAS(&nas.Message{Kind: nas.KindAuthenticationResponse, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindSecurityModeCommand {
		t.Fatalf("expected SecurityModeCommand, got %+v", reply)
	}

	reply, err = h.HandleUplinkNAS(&nas.Message{Kind: nas.KindSecurityModeComplete, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindAttachAccept {
		t.Fatalf("expected AttachAccept, got %+v", reply)
	}

	reply, err = h.HandleUplinkNAS(&nas.Message{Kind: nas.KindAttachComplete, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply != nil {
		t.Fatalf("AttachComplete should produce no reply, got %+v", reply)
	}

	reply, err = h.HandleUplinkNAS(&nas.Message{Kind: nas.KindPDNConnectivityRequest, Secure: true, EBI: 0})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Kind != nas.KindDefaultBearerActivationRequest {
		t.Fatalf("expected DefaultBearerActivationRequest, got %+v", reply)
	}
}
