// Package ue implements UEHandler (spec.md §2): the per-UE owner of the S1
// Context, the EMM and ESM sublayers, SMS relay, paging and the coarse
// per-UE concurrency discipline (spec.md §5). Grounded on UES1d in
// HdlrUES1.py.
package ue

import (
	"sync"

	"github.com/epccore/mme-core/pkg/emm"
	"github.com/epccore/mme-core/pkg/esm"
	"github.com/epccore/mme-core/pkg/nas"
	"github.com/epccore/mme-core/pkg/s1ap"
)

// ENB is the bound eNodeB reference (SCTP association handle).
type ENB interface {
	Send(pdu *s1ap.PDU) error
}

// S1Context is the transport-level anchor (spec.md §2 item 1): the bound
// eNodeB reference, the MME-assigned UE S1AP ID, the NAS security-context
// map and the S1AP procedure registry.
type S1Context struct {
	MMEUES1APID uint32
	ENBUES1APID uint32
	ENB         ENB
	Security    *emm.SecurityMap
	S1APRegistry *s1ap.Registry
	ProcLast    s1ap.ProcedureCode // diagnostic: last procedure code sent (SPEC_FULL.md §C.4)

	connected bool
	ready     chan struct{}
}

// NewS1Context returns a freshly unbound S1 Context.
func NewS1Context() *S1Context {
	c := &S1Context{
		Security:     emm.NewSecurityMap(),
		S1APRegistry: s1ap.NewRegistry(),
		ready:        make(chan struct{}, 1),
	}
	c.markReady()
	return c
}

func (c *S1Context) markReady() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// SetRAN binds the S1 Context to an eNodeB and marks `connected` (spec.md
// §4.5, §5).
func (c *S1Context) SetRAN(enb ENB, enbUeID uint32) {
	c.ENB = enb
	c.ENBUES1APID = enbUeID
	c.connected = true
}

// UnsetRAN cascades per spec.md §5 "Cancellation": drops the eNB binding,
// deactivates the active KSI, clears both sublayer stacks, clears
// `connected`. Deactivating (not Reset) matches HdlrUES1.py's unset_ran(),
// which only does `self.SEC['KSI'] = None`: every per-KSI context already
// established stays available for GetAnyKSI to reuse on reconnect without
// forcing a fresh AKA (spec.md §8). Reset is reserved for the distinct
// full-clear path.
func (c *S1Context) UnsetRAN(emmStack *emm.Stack, esmTable *esm.Table) {
	c.ENB = nil
	c.connected = false
	c.Security.Deactivate()
	emmStack.Clear()
	esmTable.Clear(nil)
	c.S1APRegistry.Clear()
}

// Connected reports whether the S1 Context is bound to an eNB.
func (c *S1Context) Connected() bool { return c.connected }

// Send frames outbound NAS into a DownlinkNASTransport and hands it to the
// bound eNB transport.
func (c *S1Context) Send(msg *nas.Message, payload []byte) error {
	if c.ENB == nil {
		return nil
	}
	c.ProcLast = s1ap.ProcDownlinkNASTransport
	return c.ENB.Send(&s1ap.PDU{
		Code:        s1ap.ProcDownlinkNASTransport,
		Outcome:     s1ap.OutcomeInitiating,
		MMEUES1APID: &c.MMEUES1APID,
		ENBUES1APID: &c.ENBUES1APID,
		IEs:         map[string]interface{}{"nas-pdu": payload},
	})
}

// mutex is the single coarse-grained per-UE lock (spec.md §5
// "Scheduling"): either a receiver callback or exactly one foreground
// operation manipulates the stacks, PDN table and security context at a
// time.
type mutex struct {
	mu sync.Mutex
}

func (m *mutex) Lock()   { m.mu.Lock() }
func (m *mutex) Unlock() { m.mu.Unlock() }
