package emm

import "github.com/epccore/mme-core/pkg/nas"

// PolicyCounters is the per-procedure re-authentication counter block
// (spec.md §3 "a per-procedure authentication policy counter
// {TAU, DET, SER, ...}").
type PolicyCounters struct {
	TAU int
	DET int
	SER int
}

// SecurityMap is the per-UE Security Context Map (spec.md §3): KSI (0-6
// native, 8-14 mapped, 7 = no-key) to Security Context, the active KSI, and
// the re-auth policy counters. Grounded on UEEMMd.SEC in HdlrUES1.py.
type SecurityMap struct {
	ctx     map[uint8]*nas.Context
	active  *uint8
	Counters PolicyCounters
}

func NewSecurityMap() *SecurityMap {
	return &SecurityMap{ctx: make(map[uint8]*nas.Context)}
}

// Reset clears every KSI, sets the active KSI to none, and zeroes the
// re-auth policy counters (spec.md §8 invariant); idempotent.
func (m *SecurityMap) Reset() {
	m.ctx = make(map[uint8]*nas.Context)
	m.active = nil
	m.Counters = PolicyCounters{}
}

func (m *SecurityMap) Get(ksi uint8) (*nas.Context, bool) {
	c, ok := m.ctx[ksi]
	return c, ok
}

func (m *SecurityMap) Set(ksi uint8, ctx *nas.Context) {
	m.ctx[ksi] = ctx
}

// Active returns the active context and its KSI, or (nil, nil) if none.
func (m *SecurityMap) Active() (*nas.Context, *uint8) {
	if m.active == nil {
		return nil, nil
	}
	c, ok := m.ctx[*m.active]
	if !ok {
		return nil, nil
	}
	return c, m.active
}

// SetActive installs ksi as the active KSI. It must already index an entry.
func (m *SecurityMap) SetActive(ksi uint8) {
	v := ksi
	m.active = &v
}

// Deactivate clears the active-KSI pointer while preserving every
// established per-KSI context, matching HdlrUES1.py's unset_ran()
// (`self.SEC['KSI'] = None`). Distinct from Reset, which wipes the whole
// map; this only drops which KSI is *current*, so a reconnecting UE can
// resume via GetAnyKSI without a fresh AKA (spec.md §8).
func (m *SecurityMap) Deactivate() {
	m.active = nil
}

func isNative(ksi uint8) bool { return ksi <= 6 }
func isMapped(ksi uint8) bool { return ksi >= 8 && ksi <= 14 }

// GetAnyKSI returns the current KSI if it's still valid, else the first
// native KSI present, else any mapped KSI (with mapped=true signalling a
// diagnostic should be logged), else nil (spec.md §4.2).
func (m *SecurityMap) GetAnyKSI() (ksi *uint8, mapped bool) {
	if m.active != nil {
		if _, ok := m.ctx[*m.active]; ok {
			return m.active, false
		}
	}
	for k := uint8(0); k <= 6; k++ {
		if _, ok := m.ctx[k]; ok {
			v := k
			return &v, false
		}
	}
	for k := uint8(8); k <= 14; k++ {
		if _, ok := m.ctx[k]; ok {
			v := k
			return &v, true
		}
	}
	return nil, false
}

// GetNewKSI returns the first unused native KSI (0-6); if all six are in
// use it evicts every non-current native KSI and returns a fresh one: 1 if
// the current KSI is 0, else 0 (spec.md §4.2).
func (m *SecurityMap) GetNewKSI() uint8 {
	for k := uint8(0); k <= 6; k++ {
		if _, ok := m.ctx[k]; !ok {
			return k
		}
	}
	var current uint8
	hasCurrent := false
	if m.active != nil && isNative(*m.active) {
		current = *m.active
		hasCurrent = true
	}
	for k := uint8(0); k <= 6; k++ {
		if hasCurrent && k == current {
			continue
		}
		delete(m.ctx, k)
	}
	if hasCurrent && current == 0 {
		return 1
	}
	return 0
}

// RequireAuth implements the authentication policy from spec.md §4.2. ksi
// is the KSI carried by the inbound NAS message triggering the procedure,
// or nil if absent.
func (m *SecurityMap) RequireAuth(disabled, authDisabled bool, cadence PolicyCadence, procKind Kind, ksi *uint8) bool {
	if disabled || authDisabled {
		return false
	}
	// No KSI carried (or explicit "no key available", 7): always
	// reauthenticate, and the current active KSI is no longer valid —
	// matches HdlrUES1.py's require_auth, which unconditionally clears
	// SEC['KSI'] in this branch, not only the ksi==7 sub-case.
	if ksi == nil || *ksi == 7 {
		m.active = nil
		return true
	}
	// KSI carried but this map holds no context for it: reauthenticate,
	// and likewise drop the active pointer since it can't be the carried
	// (unknown) KSI.
	if _, known := m.ctx[*ksi]; !known {
		m.active = nil
		return true
	}

	switch procKind {
	case KindAttach:
		return true
	case KindTAU:
		m.Counters.TAU++
		if cadenceHit(cadence.TAU, m.Counters.TAU) {
			return true
		}
		m.SetActive(*ksi)
		return false
	case KindDetachUE:
		// Open Question decision (DESIGN.md): preserve the documented
		// intent of testing against the DET slot, not HdlrUES1.py's
		// literal TAU-testing branch.
		m.Counters.DET++
		if cadenceHit(cadence.DET, m.Counters.DET) {
			return true
		}
		m.SetActive(*ksi)
		return false
	case KindServiceRequest, KindExtServiceRequest, KindCPServiceRequest:
		m.Counters.SER++
		if cadenceHit(cadence.SER, m.Counters.SER) {
			return true
		}
		m.SetActive(*ksi)
		return false
	default:
		return false
	}
}

func cadenceHit(n, counter int) bool {
	if n == 0 {
		return false
	}
	return counter%n == 0
}

// PolicyCadence is the re-auth cadence tuning surface (spec.md §6: "re-auth
// cadence {ATT: always, TAU: N, DET: N, SER: N}").
type PolicyCadence struct {
	TAU int
	DET int
	SER int
}

// RequireSMC implements the SMC policy from spec.md §4.2.
func (m *SecurityMap) RequireSMC(disabled, smcDisabled bool, bypass map[string]bool, procKind Kind) bool {
	if disabled || smcDisabled {
		return false
	}
	if bypass[procKind.Abbr()] {
		return false
	}
	_, ksi := m.Active()
	return ksi != nil
}

// CTX identifies the origin of an installed security context (spec.md §3).
type CTX uint8

const (
	CTXEmergencyNull CTX = 0
	CTXMappedGSM     CTX = 2
	CTXMappedUMTS    CTX = 3
	CTXNativeEPS     CTX = 4
)
