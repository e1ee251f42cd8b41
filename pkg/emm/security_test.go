package emm

import (
	"testing"

	"github.com/epccore/mme-core/pkg/nas"
)

func TestRequireAuthAlwaysTrueForAttach(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(0)
	m.Set(ksi, &nas.Context{})
	m.SetActive(ksi)
	if !m.RequireAuth(false, false, PolicyCadence{}, KindAttach, &ksi) {
		t.Fatal("Attach must always require authentication")
	}
}

func TestRequireAuthCadenceEveryOtherTAU(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(0)
	m.Set(ksi, &nas.Context{})
	cadence := PolicyCadence{TAU: 2}

	if m.RequireAuth(false, false, cadence, KindTAU, &ksi) {
		t.Fatal("first TAU should not force re-auth with cadence 2")
	}
	if !m.RequireAuth(false, false, cadence, KindTAU, &ksi) {
		t.Fatal("second TAU should force re-auth with cadence 2")
	}
	if m.RequireAuth(false, false, cadence, KindTAU, &ksi) {
		t.Fatal("third TAU should not force re-auth with cadence 2")
	}
}

func TestRequireAuthCadenceZeroNeverForces(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(0)
	m.Set(ksi, &nas.Context{})
	for i := 0; i < 5; i++ {
		if m.RequireAuth(false, false, PolicyCadence{SER: 0}, KindServiceRequest, &ksi) {
			t.Fatal("cadence 0 must never force re-auth")
		}
	}
}

func TestRequireAuthDetachTestsDETCounter(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(0)
	m.Set(ksi, &nas.Context{})
	cadence := PolicyCadence{TAU: 1, DET: 3}
	hits := 0
	for i := 0; i < 3; i++ {
		if m.RequireAuth(false, false, cadence, KindDetachUE, &ksi) {
			hits++
		}
	}
	if hits != 1 || m.Counters.DET != 3 || m.Counters.TAU != 0 {
		t.Fatalf("expected DET counter exercised, not TAU: %+v hits=%d", m.Counters, hits)
	}
}

func TestRequireAuthAlwaysTrueForUnknownKSI(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(3)
	if !m.RequireAuth(false, false, PolicyCadence{}, KindServiceRequest, &ksi) {
		t.Fatal("unknown KSI must force authentication")
	}
}

func TestRequireAuthDisabledGlobally(t *testing.T) {
	m := NewSecurityMap()
	ksi := uint8(0)
	m.Set(ksi, &nas.Context{})
	if m.RequireAuth(true, false, PolicyCadence{}, KindAttach, &ksi) {
		t.Fatal("globally disabled security must never require auth")
	}
}

func TestGetAnyKSIPrefersActive(t *testing.T) {
	m := NewSecurityMap()
	m.Set(0, &nas.Context{})
	m.Set(1, &nas.Context{})
	m.SetActive(1)
	ksi, mapped := m.GetAnyKSI()
	if ksi == nil || *ksi != 1 || mapped {
		t.Fatalf("expected active KSI 1, got %+v mapped=%v", ksi, mapped)
	}
}

func TestGetAnyKSIFallsBackToMapped(t *testing.T) {
	m := NewSecurityMap()
	m.Set(10, &nas.Context{})
	ksi, mapped := m.GetAnyKSI()
	if ksi == nil || *ksi != 10 || !mapped {
		t.Fatalf("expected mapped KSI 10 flagged, got %+v mapped=%v", ksi, mapped)
	}
}

func TestGetNewKSIEvictsNonCurrentWhenFull(t *testing.T) {
	m := NewSecurityMap()
	for k := uint8(0); k <= 6; k++ {
		m.Set(k, &nas.Context{})
	}
	m.SetActive(3)
	fresh := m.GetNewKSI()
	if fresh != 0 {
		t.Fatalf("expected fresh KSI 0 when current != 0, got %d", fresh)
	}
	if _, ok := m.Get(3); !ok {
		t.Fatal("current KSI must survive eviction")
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("non-current native KSIs must be evicted once the map is full")
	}
}

func TestGetNewKSIReturnsOneWhenCurrentIsZero(t *testing.T) {
	m := NewSecurityMap()
	for k := uint8(0); k <= 6; k++ {
		m.Set(k, &nas.Context{})
	}
	m.SetActive(0)
	if fresh := m.GetNewKSI(); fresh != 1 {
		t.Fatalf("expected fresh KSI 1 when current == 0, got %d", fresh)
	}
}

func TestRequireSMCFalseWithoutActiveContext(t *testing.T) {
	m := NewSecurityMap()
	if m.RequireSMC(false, false, nil, KindAttach) {
		t.Fatal("SMC cannot run without an active security context")
	}
}

func TestRequireSMCRespectsBypassSet(t *testing.T) {
	m := NewSecurityMap()
	m.Set(0, &nas.Context{})
	m.SetActive(0)
	if m.RequireSMC(false, false, map[string]bool{"ATT": true}, KindAttach) {
		t.Fatal("bypassed procedure must not require SMC")
	}
}
