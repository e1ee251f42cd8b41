package esm

import (
	"errors"
	"fmt"
	"time"

	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/nas"
)

// Request is the UE's PDN-Connectivity transaction input (spec.md §4.3
// "PDN-Connectivity transaction").
type Request struct {
	APN     string
	Type    PDNType
	PCO     []PCOElement
	PTI     uint8
}

// Server is the subset of the Server registry collaborator (spec.md §6)
// the PDN-Connectivity transaction needs: SGW TLA and the GTP-U TEID
// allocator.
type Server interface {
	SGWTLA() string
	AllocateTEID() uint32
}

// RequestCodec decodes an inbound PDNConnectivityRequest's opaque inner
// IEs into a Request. Parsing ESM IEs is out of scope for this module
// (spec.md §1), same boundary as pkg/nas.Codec; this is the collaborator
// the Dispatcher's NewTransaction hook reaches it through.
type RequestCodec interface {
	DecodePDNConnectivityRequest(m *nas.Message) (Request, error)
}

// Rejected reports a failed PDN-Connectivity transaction with its ESM cause.
type Rejected struct {
	Cause uint8
}

func (r *Rejected) Error() string { return fmt.Sprintf("esm: pdn connectivity rejected, cause %d", r.Cause) }

// PDNConnectivity runs the 7-step PDN-Connectivity transaction
// (spec.md §4.3). On success it returns the materialised PDN context (still
// Suspended) and the PCO to embed in the Default Bearer Activation Request,
// along with whether the PDN address must remain in the signalling
// container (a 000A PCO element was present). On failure it returns a
// *Rejected error.
func PDNConnectivity(req Request, cfg *config.Config, srv Server, table *Table) (*PDNContext, []PCOElement, bool, error) {
	// Step 1: resolve APN.
	apn, ok := cfg.FindAPN(req.APN)
	if !ok {
		return nil, nil, false, &Rejected{Cause: CauseUnknownAPN}
	}

	// Step 2: reconcile PDN type.
	provisioned, ok := provisionedType(apn)
	if !ok {
		return nil, nil, false, &Rejected{Cause: CauseUnknownPDNType}
	}
	pdnType, err := reconcileType(req.Type, provisioned)
	if err != nil {
		return nil, nil, false, err
	}

	// Step 3: process PCO.
	pcoResp, pdnAddrReq := ProcessPCO(req.PCO, apn)

	// Step 4: QCI (default 0x80 if absent).
	qci := uint8(apn.QCI)
	if qci == 0 {
		qci = 0x80
	}

	// Step 5: allocate EBI.
	ebi, ok := table.AllocateEBI()
	if !ok {
		return nil, nil, false, &Rejected{Cause: CauseMaxBearersReached}
	}

	// Step 6: materialise the PDN context.
	pdn := &PDNContext{
		EBI:  ebi,
		APN:  apn.Name,
		Type: pdnType,
		Addr: allocateAddr(apn, pdnType),
		RAB: RABParameters{
			QCI:            qci,
			ARPPriority:    uint8(apn.ARPPriority),
			ARPPreemptCap:  apn.ARPPreemptCap,
			ARPPreemptVuln: apn.ARPPreemptVuln,
			BitrateDL:      apn.BitrateDL,
			BitrateUL:      apn.BitrateUL,
			SGWTLA:         srv.SGWTLA(),
			SGWTEID:        srv.AllocateTEID(),
		},
		State: StateSuspended,
	}
	table.SetPDN(ebi, pdn)

	return pdn, pcoResp, pdnAddrReq, nil
}

// PDNConnectivityProcedure drives the PDN-Connectivity transaction end to
// end (spec.md §4.3 steps 1-7): run to completion on construction, it
// replies with DefaultEPSBearerContextActivationRequest (or
// PDNConnectivityReject on failure) and, on success, stays on the EBI
// stack awaiting the UE's Default Bearer Activation Accept/Reject.
// Grounded on Proc_PDNConnectivity / Proc_DefaultEPSBearerCtxActivation in
// HdlrUES1.py; this is the NewTransaction hook's concrete Procedure.
type PDNConnectivityProcedure struct {
	table   *Table
	ebi     uint8
	reject  bool
	first   *nas.Message
	aborted bool
}

// NewPDNConnectivityProcedure runs PDNConnectivity immediately and records
// the reply it must send as soon as Process sees the triggering
// PDNConnectivityRequest.
func NewPDNConnectivityProcedure(req Request, cfg *config.Config, srv Server, table *Table) *PDNConnectivityProcedure {
	pdn, pco, pdnAddrReq, err := PDNConnectivity(req, cfg, srv, table)
	if err != nil {
		cause := CauseProtocolErrorUnspec
		var rej *Rejected
		if errors.As(err, &rej) {
			cause = rej.Cause
		}
		return &PDNConnectivityProcedure{
			reject: true,
			first:  &nas.Message{Kind: nas.KindPDNConnectivityReject, PTI: req.PTI, Payload: []byte{cause}},
		}
	}
	return &PDNConnectivityProcedure{
		table: table,
		ebi:   pdn.EBI,
		first: buildDefaultBearerActivationRequest(pdn, pco, pdnAddrReq, req.PTI),
	}
}

// buildDefaultBearerActivationRequest renders the downlink trigger for
// Default EPS Bearer Context Activation (spec.md §4.3 step 7). Encoding
// the PCO/address IEs into wire bytes is out of scope here (spec.md §1,
// reached through pkg/nas.Codec); Payload carries only the EBI-scoped
// shape this layer owns.
func buildDefaultBearerActivationRequest(pdn *PDNContext, pco []PCOElement, pdnAddrReq bool, pti uint8) *nas.Message {
	return &nas.Message{
		Kind: nas.KindDefaultBearerActivationRequest,
		EBI:  pdn.EBI,
		PTI:  pti,
	}
}

func (p *PDNConnectivityProcedure) Name() string { return "PDN_CONN" }

func (p *PDNConnectivityProcedure) Filter() map[nas.Kind]bool {
	return map[nas.Kind]bool{
		nas.KindDefaultBearerActivationAccept: true,
		nas.KindDefaultBearerActivationReject: true,
	}
}

func (p *PDNConnectivityProcedure) Process(m *nas.Message) (Outcome, error) {
	if m.Kind == nas.KindPDNConnectivityRequest {
		return Outcome{Reply: p.first, Done: p.reject}, nil
	}
	if m.Kind == nas.KindDefaultBearerActivationReject && p.table != nil {
		p.table.DeletePDN(p.ebi)
	}
	return Outcome{Done: true}, nil
}

func (p *PDNConnectivityProcedure) Abort()               { p.aborted = true }
func (p *PDNConnectivityProcedure) Timer() time.Duration { return T3485 }

func provisionedType(apn *config.APNConfig) (PDNType, bool) {
	switch apn.PDNType {
	case "ipv4":
		return PDNTypeIPv4, true
	case "ipv6":
		return PDNTypeIPv6, true
	case "ipv4v6", "":
		return PDNTypeIPv4v6, true
	default:
		return 0, false
	}
}

// reconcileType accepts the narrower of UE request and network provision,
// rejecting per spec.md §4.3 step 2.
func reconcileType(requested, provisioned PDNType) (PDNType, error) {
	if requested == PDNTypeIPv4v6 {
		if provisioned == PDNTypeIPv4v6 {
			return PDNTypeIPv4v6, nil
		}
		return provisioned, nil
	}
	if provisioned == PDNTypeIPv4v6 {
		return requested, nil
	}
	if requested == provisioned {
		return requested, nil
	}
	if requested == PDNTypeIPv6 {
		return 0, &Rejected{Cause: CauseIPv4OnlyAllowed}
	}
	if requested == PDNTypeIPv4 {
		return 0, &Rejected{Cause: CauseIPv6OnlyAllowed}
	}
	return 0, &Rejected{Cause: CauseProtocolErrorUnspec}
}

func allocateAddr(apn *config.APNConfig, t PDNType) []byte {
	switch t {
	case PDNTypeIPv4:
		return []byte(apn.IPv4Addr)
	case PDNTypeIPv6:
		return []byte(apn.IPv6Prefix)
	default:
		return append([]byte(apn.IPv4Addr), []byte(apn.IPv6Prefix)...)
	}
}
