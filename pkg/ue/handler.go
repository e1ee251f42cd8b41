package ue

import (
	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/emm"
	"github.com/epccore/mme-core/pkg/esm"
	"github.com/epccore/mme-core/pkg/nas"
	"github.com/epccore/mme-core/pkg/sms"
)

// ASSecurityContext is the (possibly all-zero) security context handed to
// the eNodeB in InitialContextSetup, exposed even when no NAS security
// context exists yet (SPEC_FULL.md §C.2).
type ASSecurityContext struct {
	Knasenc [16]byte
	Knasint [16]byte
	EEA     int
	EIA     int
}

// UEHandler owns the S1 Context, the EMM procedure stack, the ESM
// procedure table and the SMS relay handler for one UE (spec.md §2).
type UEHandler struct {
	mutex

	IMSI string
	S1   *S1Context
	EMM  *emm.Stack
	ESM  *esm.Table
	SMS  *sms.Handler

	EMMDispatch *emm.Dispatcher
	ESMDispatch *esm.Dispatcher

	NASEnvelope *nas.Envelope
}

// Deps bundles the external collaborators a UEHandler needs but does not
// own (spec.md §6): the authentication-vector source and crypto/KDF engine
// fronting the HSS/AuC, the security policy, the static network config, the
// ESM PDN-Connectivity Server collaborator and the request/NAS codecs.
// One Deps is shared across every UE; NewUEHandler builds the per-UE
// Factory and Dispatchers from it.
type Deps struct {
	Vectors      crypto.VectorProvider
	KDF          crypto.KDF
	SecurityCodec crypto.SecurityCodec
	EMMPolicy    emm.Policy
	NASPolicy    nas.Policy
	Config       *config.Config
	Server       esm.Server
	RequestCodec esm.RequestCodec
	EMMStatusPolicy emm.StatusPolicy
	ESMStatusPolicy esm.StatusPolicy
}

// NewUEHandler wires a fresh per-UE handler: the S1 Context, EMM stack and
// ESM table, and — unlike a bare struct literal — a real Factory-backed
// EMMDispatch and a NewTransaction-wired ESMDispatch, so HandleUplinkNAS
// always has somewhere to route (spec.md §2, §4.2, §4.3).
func NewUEHandler(imsi string, deps Deps) *UEHandler {
	h := &UEHandler{
		IMSI: imsi,
		S1:   NewS1Context(),
		EMM:  &emm.Stack{},
		ESM:  esm.NewTable(),
		SMS:  &sms.Handler{IMSI: imsi},
	}

	factory := &emm.Factory{
		IMSI:     imsi,
		Security: h.S1.Security,
		Vectors:  deps.Vectors,
		KDF:      deps.KDF,
		Policy:   deps.EMMPolicy,
		Push:     h.EMM.Push,
	}
	h.EMMDispatch = &emm.Dispatcher{
		Stack:        h.EMM,
		StatusPolicy: deps.EMMStatusPolicy,
		NewProcedure: factory.NewProcedure,
		AbortESM:     func() { h.ESM.Clear(nil) },
	}

	h.ESMDispatch = &esm.Dispatcher{
		Table:        h.ESM,
		StatusPolicy: deps.ESMStatusPolicy,
		NewTransaction: func(m *nas.Message) (esm.Procedure, error) {
			req, err := deps.RequestCodec.DecodePDNConnectivityRequest(m)
			if err != nil {
				return nil, err
			}
			return esm.NewPDNConnectivityProcedure(req, deps.Config, deps.Server, h.ESM), nil
		},
	}

	h.NASEnvelope = nas.NewEnvelope(deps.SecurityCodec, deps.NASPolicy)

	return h
}

// SecurityContextForAS materialises the AS-facing security context, using
// the active NAS security context if one exists, or an all-zero
// null/emergency shape otherwise (SPEC_FULL.md §C.2) so InitialContextSetup
// always has a well-formed IE to send.
func (h *UEHandler) SecurityContextForAS() ASSecurityContext {
	ctx, _ := h.S1.Security.Active()
	if ctx == nil {
		return ASSecurityContext{}
	}
	return ASSecurityContext{
		Knasenc: ctx.Knasenc,
		Knasint: ctx.Knasint,
		EEA:     int(ctx.EEA),
		EIA:     int(ctx.EIA),
	}
}

// HandleUplinkNAS routes one already-decoded inbound NAS message to the EMM
// or ESM dispatcher by its kind, and drops any other kind with no reply. It
// does not verify or decipher: NASEnvelope is not called here, and m.Secure
// is used as the caller set it.
func (h *UEHandler) HandleUplinkNAS(m *nas.Message) (*nas.Message, error) {
	h.Lock()
	defer h.Unlock()

	if m.Kind.IsEMM() {
		return h.EMMDispatch.Dispatch(m)
	}
	if m.Kind.IsESM() {
		return h.ESMDispatch.Dispatch(m)
	}
	return nil, nil
}
