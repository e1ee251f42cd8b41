package esm

import (
	"errors"
	"testing"

	"github.com/epccore/mme-core/pkg/config"
)

type fakeServer struct{ teid uint32 }

func (f *fakeServer) SGWTLA() string { return "10.0.0.1" }
func (f *fakeServer) AllocateTEID() uint32 {
	f.teid++
	return f.teid
}

func testConfig() *config.Config {
	return &config.Config{
		APNs: []config.APNConfig{
			{Name: "internet", PDNType: "ipv4v6", QCI: 9, DNSv4: []string{"8.8.8.8"}},
			{Name: "ims", PDNType: "ipv4", QCI: 5},
		},
	}
}

func TestPDNConnectivityUnknownAPNRejects(t *testing.T) {
	cfg := testConfig()
	table := NewTable()
	_, _, _, err := PDNConnectivity(Request{APN: "nonexistent", Type: PDNTypeIPv4}, cfg, &fakeServer{}, table)
	var rej *Rejected
	if !errors.As(err, &rej) || rej.Cause != CauseUnknownAPN {
		t.Fatalf("expected cause 27, got %v", err)
	}
}

func TestPDNConnectivityIPv6OnlyRejectsWhenAPNIsIPv4(t *testing.T) {
	cfg := testConfig()
	table := NewTable()
	_, _, _, err := PDNConnectivity(Request{APN: "ims", Type: PDNTypeIPv6}, cfg, &fakeServer{}, table)
	var rej *Rejected
	if !errors.As(err, &rej) || rej.Cause != CauseIPv4OnlyAllowed {
		t.Fatalf("expected cause 50, got %v", err)
	}
}

func TestPDNConnectivityAllocatesFirstFreeEBI(t *testing.T) {
	cfg := testConfig()
	table := NewTable()
	pdn, _, _, err := PDNConnectivity(Request{APN: "internet", Type: PDNTypeIPv4v6}, cfg, &fakeServer{}, table)
	if err != nil {
		t.Fatal(err)
	}
	if pdn.EBI != 5 {
		t.Fatalf("expected first PDN to take EBI 5, got %d", pdn.EBI)
	}
	if pdn.State != StateSuspended {
		t.Fatal("freshly materialised PDN context must start Suspended")
	}
}

func TestPDNConnectivityMaxBearersReached(t *testing.T) {
	cfg := testConfig()
	table := NewTable()
	for i := 0; i < 11; i++ {
		if _, _, _, err := PDNConnectivity(Request{APN: "internet", Type: PDNTypeIPv4}, cfg, &fakeServer{}, table); err != nil {
			t.Fatalf("unexpected rejection at iteration %d: %v", i, err)
		}
	}
	_, _, _, err := PDNConnectivity(Request{APN: "internet", Type: PDNTypeIPv4}, cfg, &fakeServer{}, table)
	var rej *Rejected
	if !errors.As(err, &rej) || rej.Cause != CauseMaxBearersReached {
		t.Fatalf("expected cause 65, got %v", err)
	}
}

func TestPDNConnectivityFallsBackToWildcardAPN(t *testing.T) {
	cfg := testConfig()
	cfg.APNs = append(cfg.APNs, config.APNConfig{Name: "*", PDNType: "ipv4"})
	table := NewTable()
	pdn, _, _, err := PDNConnectivity(Request{APN: "unlisted", Type: PDNTypeIPv4}, cfg, &fakeServer{}, table)
	if err != nil {
		t.Fatal(err)
	}
	if pdn.APN != "*" {
		t.Fatalf("expected wildcard APN fallback, got %q", pdn.APN)
	}
}
