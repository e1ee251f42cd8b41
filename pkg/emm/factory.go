package emm

import (
	"fmt"

	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
)

// Policy is the authentication/SMC tuning surface a Factory consults when
// deciding whether Attach/TAU must nest Authentication and/or
// SecurityModeControl (spec.md §6), lifted out of config.SecurityConfig so
// this package depends only on the fields it actually needs.
type Policy struct {
	Disabled     bool
	AuthDisabled bool
	SMCDisabled  bool
	SMCBypass    map[string]bool
	Cadence      PolicyCadence
	EEA, EIA     int // negotiated algorithm pair SMC installs (spec.md §4.2)
	SNID         string
}

// PolicyFromConfig adapts config.SecurityConfig/NetworkConfig into a
// Policy (spec.md §6 "Tuning surface").
func PolicyFromConfig(cfg *config.Config) Policy {
	bypass := make(map[string]bool, len(cfg.Security.SMCBypassProc))
	for _, name := range cfg.Security.SMCBypassProc {
		bypass[name] = true
	}
	return Policy{
		Disabled:     cfg.Security.Disabled,
		AuthDisabled: cfg.Security.AuthDisabled,
		SMCDisabled:  cfg.Security.SMCDisabled,
		SMCBypass:    bypass,
		Cadence: PolicyCadence{
			TAU: cfg.Security.AuthCadenceTAU,
			DET: cfg.Security.AuthCadenceDET,
			SER: cfg.Security.AuthCadenceSER,
		},
		EEA:  cfg.Security.EEADefault,
		EIA:  cfg.Security.EIADefault,
		SNID: cfg.Network.PLMN,
	}
}

// Factory builds the concrete EMM procedures for one UE's stack (spec.md
// §4.2 step 6: "start a fresh UE-initiated procedure"), wiring the
// authentication/SMC policy engine and security-context installation into
// Attach and TAU exactly as UEEMMd.process does in HdlrUES1.py. One Factory
// is built per UEHandler; Push must push onto that handler's own EMM Stack.
type Factory struct {
	IMSI     string
	Security *SecurityMap
	Vectors  crypto.VectorProvider
	KDF      crypto.KDF
	Policy   Policy
	Push     func(Procedure)
}

// NewProcedure implements the Dispatcher.NewProcedure hook.
func (f *Factory) NewProcedure(kind Kind) (Procedure, error) {
	switch kind {
	case KindAttach:
		return &AttachProcedure{
			IMSI: f.IMSI, Security: f.Security, Vectors: f.Vectors, KDF: f.KDF,
			Policy: f.Policy, Push: f.Push,
		}, nil
	case KindTAU:
		return &TAUProcedure{
			IMSI: f.IMSI, Security: f.Security, Vectors: f.Vectors, KDF: f.KDF,
			Policy: f.Policy, Push: f.Push,
		}, nil
	case KindServiceRequest, KindExtServiceRequest, KindCPServiceRequest:
		return NewServiceRequestProcedure(kind), nil
	case KindDetachUE:
		return &DetachProcedure{}, nil
	default:
		return nil, fmt.Errorf("emm: no procedure registered for kind %d", kind)
	}
}
