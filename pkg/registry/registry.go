// Package registry implements the "Server registry" external collaborator
// (spec.md §6): TAI→eNB-set lookup, the eNB handle used by paging, PLMN
// config, the APN/PDN config table, and the PAP credential table. Grounded
// on the Server.RAN / Server.TAI attributes referenced throughout
// HdlrUES1.py, with no single teacher file to adapt directly — shaped to
// satisfy the esm.Server and ue.Pager collaborator interfaces this core
// defines.
package registry

import (
	"sync"

	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/emm"
	"github.com/epccore/mme-core/pkg/esm"
	"github.com/epccore/mme-core/pkg/gtpu"
	"github.com/epccore/mme-core/pkg/nas"
	"github.com/epccore/mme-core/pkg/ue"
)

// TAI identifies a Tracking Area (PLMN + TAC).
type TAI struct {
	PLMN string
	TAC  uint16
}

// Collaborators bundles the per-deployment, UE-independent dependencies
// every UEHandler needs (spec.md §6): the HSS/AuC vector source and KDF,
// the NAS security codec, the EMM/NAS policy derived from config, and the
// ESM request codec. SCTP transport and the S1AP/NAS wire codecs remain
// external collaborators per spec.md's Non-goals (E); SecurityCodec and
// RequestCodec are supplied here as the seam a concrete transport plugs
// into, consumed only through the pkg/crypto, pkg/nas and pkg/esm
// interfaces those collaborators are reached through.
type Collaborators struct {
	Vectors       crypto.VectorProvider
	KDF           crypto.KDF
	SecurityCodec crypto.SecurityCodec
	RequestCodec  esm.RequestCodec
	NASPolicy     nas.Policy
}

// Registry is the MME-wide UE directory and TAI→eNB routing table.
type Registry struct {
	cfg   *config.Config
	deps  Collaborators

	mu      sync.RWMutex
	ues     map[uint32]*ue.UEHandler // keyed by MME-assigned UE S1AP ID
	byIMSI  map[string]*ue.UEHandler
	enbsByTAI map[TAI][]ue.ENB
	lastTAI map[string]TAI // IMSI -> last-known TAI, for paging

	teids *gtpu.Allocator
	sgwTLA string
}

func New(cfg *config.Config, sgwTLA string, deps Collaborators) *Registry {
	return &Registry{
		cfg:       cfg,
		deps:      deps,
		ues:       make(map[uint32]*ue.UEHandler),
		byIMSI:    make(map[string]*ue.UEHandler),
		enbsByTAI: make(map[TAI][]ue.ENB),
		lastTAI:   make(map[string]TAI),
		teids:     gtpu.NewAllocator(1),
		sgwTLA:    sgwTLA,
	}
}

// NewUE builds a fully-wired UEHandler for imsi (real EMMDispatch/ESMDispatch,
// per the ue.Deps contract NewUEHandler requires) and registers it under
// mmeUeID, so every UE the S1AP connection-accept path creates goes through
// this one path to a live Dispatcher rather than ever leaving one nil.
func (r *Registry) NewUE(mmeUeID uint32, imsi string) *ue.UEHandler {
	h := ue.NewUEHandler(imsi, ue.Deps{
		Vectors:       r.deps.Vectors,
		KDF:           r.deps.KDF,
		SecurityCodec: r.deps.SecurityCodec,
		EMMPolicy:     emm.PolicyFromConfig(r.cfg),
		NASPolicy:     r.deps.NASPolicy,
		Config:        r.cfg,
		Server:        r,
		RequestCodec:  r.deps.RequestCodec,
	})
	h.S1.MMEUES1APID = mmeUeID
	r.Register(mmeUeID, h)
	return h
}

// Register records a new UE under its MME-assigned S1AP UE ID.
func (r *Registry) Register(mmeUeID uint32, h *ue.UEHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ues[mmeUeID] = h
	r.byIMSI[h.IMSI] = h
}

// Unregister drops a UE, e.g. after a completed Detach.
func (r *Registry) Unregister(mmeUeID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.ues[mmeUeID]; ok {
		delete(r.byIMSI, h.IMSI)
		delete(r.ues, mmeUeID)
	}
}

// Lookup returns the UE handler for a given MME-assigned S1AP UE ID.
func (r *Registry) Lookup(mmeUeID uint32) (*ue.UEHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.ues[mmeUeID]
	return h, ok
}

// LookupIMSI returns the UE handler for a given IMSI.
func (r *Registry) LookupIMSI(imsi string) (*ue.UEHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byIMSI[imsi]
	return h, ok
}

// BindENB registers enb as serving the given TAI.
func (r *Registry) BindENB(tai TAI, enb ue.ENB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enbsByTAI[tai] = append(r.enbsByTAI[tai], enb)
}

// SetLastTAI records the UE's last-known TAI, consulted by paging.
func (r *Registry) SetLastTAI(imsi string, tai TAI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastTAI[imsi] = tai
}

// PagingENBs implements ue.Pager: the set of eNBs serving (plmn, tac).
func (r *Registry) PagingENBs(plmn string, tac uint16) []ue.ENB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enbsByTAI[TAI{PLMN: plmn, TAC: tac}]
}

// SGWTLA implements esm.Server.
func (r *Registry) SGWTLA() string { return r.sgwTLA }

// AllocateTEID implements esm.Server.
func (r *Registry) AllocateTEID() uint32 { return r.teids.Allocate() }

// Config exposes the underlying static configuration (PLMN, APN/PAP table).
func (r *Registry) Config() *config.Config { return r.cfg }

// Count returns the number of UEs currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ues)
}

// All returns a snapshot of every registered UE handler, for the operator
// console's UE listing.
func (r *Registry) All() []*ue.UEHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ue.UEHandler, 0, len(r.ues))
	for _, h := range r.ues {
		out = append(out, h)
	}
	return out
}
