package ue

import (
	"context"
	"time"

	"github.com/epccore/mme-core/pkg/s1ap"
)

// Pager is the (PLMN, TAC)-keyed eNB enumeration the Server registry
// collaborator exposes for paging (spec.md §4.5).
type Pager interface {
	// PagingENBs returns the eNB handles serving the UE's last-known TAI.
	PagingENBs(plmn string, tac uint16) []ENB
}

// Page sends one non-blocking Paging PDU to every eNB serving the UE's
// last-known TAI (spec.md §4.5 "page is non-blocking"). cause is nil when
// no specific S1AP cause applies, in which case the paging IE set omits
// one rather than referencing an undefined value (SPEC_FULL.md §C.2
// resolving the original's unresolved-cause-symbol defect).
func Page(pager Pager, plmn string, tac uint16, mmeUeS1apID uint32, cause *s1ap.Cause) {
	ies := map[string]interface{}{"ue-identity-index-value": mmeUeS1apID}
	if cause != nil {
		ies["cause"] = *cause
	}
	pdu := &s1ap.PDU{Code: s1ap.ProcPaging, Outcome: s1ap.OutcomeInitiating, IEs: ies}
	for _, enb := range pager.PagingENBs(plmn, tac) {
		_ = enb.Send(pdu)
	}
}

// PageBlock retries Page up to retries times, PAG_WAIT apart, returning as
// soon as s1 becomes connected, or false if it times out (spec.md §4.5
// "page_block retries up to PAG_RETR times... resolving as soon as the S1
// connected event fires").
func PageBlock(ctx context.Context, s1 *S1Context, pager Pager, plmn string, tac uint16, retries int, wait time.Duration) bool {
	for i := 0; i < retries; i++ {
		if s1.Connected() {
			return true
		}
		Page(pager, plmn, tac, s1.MMEUES1APID, nil)
		select {
		case <-ctx.Done():
			return s1.Connected()
		case <-time.After(wait):
		}
	}
	return s1.Connected()
}

// readyTimeout bounds the wait on the `ready` event for a network-initiated
// foreground task (spec.md §4.5: "a bounded wait of ~10s").
const readyTimeout = 10 * time.Second

// settleGrace is the small additional sleep after page_block succeeds, to
// let concurrent serving procedures settle before the foreground task
// proceeds (spec.md §4.5).
const settleGrace = 100 * time.Millisecond

// WaitNetworkInitiated implements the full `_net_init_con` readiness gate
// (SPEC_FULL.md §C.3): page_block, then a short grace sleep, then a bounded
// wait on `ready`, then a final check of `connected`. All three steps run,
// not just the paging round-trip — the defect the original source had of
// skipping straight from page_block to the operation is not reproduced here.
func WaitNetworkInitiated(ctx context.Context, s1 *S1Context, ready <-chan struct{}, pager Pager, plmn string, tac uint16, retries int, wait time.Duration) bool {
	if !PageBlock(ctx, s1, pager, plmn, tac, retries, wait) {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(settleGrace):
	}

	select {
	case <-ready:
	case <-time.After(readyTimeout):
	case <-ctx.Done():
		return false
	}

	return s1.Connected()
}
