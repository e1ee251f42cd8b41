// Package knowledge is a narrowed lookup table for EMM and ESM cause codes,
// adapted from the teacher's pkg/knowledge/knowledge_base.go. The teacher
// indexed generic multi-protocol reference material (3GPP/IETF standards,
// Diameter/GTP/MAP error codes, a free-text search index) for an
// operator-facing troubleshooting console. This core speaks neither
// Diameter, GTPv2-C, nor MAP on any interface of its own — the only cause
// codes it ever produces are the EMM/ESM ones defined in pkg/emm and
// pkg/esm — so the standards catalogue, procedure-reference table, and
// generic keyword search index are dropped; only the ErrorCodeReference
// shape and its lookup survive, repopulated with EMM/ESM causes.
package knowledge

import "fmt"

// ErrorCodeReference describes one EMM or ESM cause code for operator
// consoles and logs.
type ErrorCodeReference struct {
	Protocol    string `json:"protocol"` // "EMM" or "ESM"
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Causes      string `json:"causes"`
	Solutions   string `json:"solutions"`
	StandardRef string `json:"standard_ref"`
	Severity    string `json:"severity"`
}

// KnowledgeBase holds the EMM/ESM cause-code reference table.
type KnowledgeBase struct {
	errorCodes map[string]map[int]*ErrorCodeReference // protocol -> code -> entry
}

func NewKnowledgeBase() *KnowledgeBase {
	kb := &KnowledgeBase{
		errorCodes: make(map[string]map[int]*ErrorCodeReference),
	}
	kb.loadErrorCodes()
	return kb
}

func (kb *KnowledgeBase) loadErrorCodes() {
	emmCauses := []*ErrorCodeReference{
		{
			Protocol:    "EMM",
			Code:        96,
			Name:        "Invalid mandatory information / message not recognized",
			Description: "An uplink NAS message did not match any filter of the top procedure on the EMM stack and the stack was empty.",
			Causes:      "UE sent a procedure-starting message the core does not recognize, or a message for a procedure that was never started.",
			Solutions:   "Review the UE's NAS trace around the rejected message; confirm it is one of the UE-initiated procedure kinds this core routes (Attach, TAU, Service Request, Detach).",
			StandardRef: "TS 24.301 Section 8.2.27 / 8.2.28",
			Severity:    "minor",
		},
		{
			Protocol:    "EMM",
			Code:        98,
			Name:        "Message type not compatible with the protocol state",
			Description: "An uplink NAS message did not match the filter of the procedure currently on top of the EMM stack.",
			Causes:      "UE is out of step with the core's procedure state, e.g. retransmitting a message for an already-completed procedure.",
			Solutions:   "Check for lost downlink messages (Accept/Reject) that would have advanced the UE's own state machine; verify timer values against the UE's T3*** timers.",
			StandardRef: "TS 24.301 Section 8.2.27 / 8.2.28",
			Severity:    "minor",
		},
	}

	esmCauses := []*ErrorCodeReference{
		{
			Protocol:    "ESM",
			Code:        27,
			Name:        "Missing or unknown APN",
			Description: "The PDN Connectivity Request named an APN with no matching configuration and no wildcard APN configured.",
			Causes:      "Typo in UE-requested APN, APN not provisioned in the static APN table, missing wildcard fallback.",
			Solutions:   "Verify the APN table entry or add a wildcard APN default.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "major",
		},
		{
			Protocol:    "ESM",
			Code:        28,
			Name:        "Unknown PDN type",
			Description: "The requested PDN type string on the resolved APN configuration was not one of ipv4, ipv6, or ipv4v6.",
			Causes:      "Malformed or unrecognized PDNType value in the APN configuration.",
			Solutions:   "Fix the APN configuration's PDNType field.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "major",
		},
		{
			Protocol:    "ESM",
			Code:        50,
			Name:        "PDN type IPv4 only allowed",
			Description: "UE requested IPv6 connectivity but the resolved APN only provisions IPv4.",
			Causes:      "APN configuration restricts the PDN type to IPv4.",
			Solutions:   "Provision dual-stack on the APN if IPv6 connectivity is required, or confirm this restriction is intentional.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "minor",
		},
		{
			Protocol:    "ESM",
			Code:        51,
			Name:        "PDN type IPv6 only allowed",
			Description: "UE requested IPv4 connectivity but the resolved APN only provisions IPv6.",
			Causes:      "APN configuration restricts the PDN type to IPv6.",
			Solutions:   "Provision dual-stack on the APN if IPv4 connectivity is required, or confirm this restriction is intentional.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "minor",
		},
		{
			Protocol:    "ESM",
			Code:        65,
			Name:        "Maximum number of EPS bearers reached",
			Description: "All allocatable EPS Bearer Identities (5-15) are already in use for this UE.",
			Causes:      "UE requested another PDN connection after already reaching the 11-bearer ceiling.",
			Solutions:   "Have the UE release an existing PDN connection before requesting a new one.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "minor",
		},
		{
			Protocol:    "ESM",
			Code:        111,
			Name:        "Protocol error, unspecified",
			Description: "The requested and provisioned PDN type families could not be reconciled by any other specific cause.",
			Causes:      "Unexpected PDNType combination not covered by the narrower-family reconciliation rules.",
			Solutions:   "Inspect the specific requested/provisioned PDNType pairing recorded in the reject log.",
			StandardRef: "TS 24.301 Section 9.9.4.4",
			Severity:    "minor",
		},
	}

	kb.errorCodes["EMM"] = make(map[int]*ErrorCodeReference, len(emmCauses))
	for _, e := range emmCauses {
		kb.errorCodes["EMM"][e.Code] = e
	}
	kb.errorCodes["ESM"] = make(map[int]*ErrorCodeReference, len(esmCauses))
	for _, e := range esmCauses {
		kb.errorCodes["ESM"][e.Code] = e
	}
}

// GetErrorCode returns the reference entry for an EMM or ESM cause code.
func (kb *KnowledgeBase) GetErrorCode(protocol string, code int) (*ErrorCodeReference, error) {
	protocolErrors, ok := kb.errorCodes[protocol]
	if !ok {
		return nil, fmt.Errorf("protocol %s not found", protocol)
	}
	errRef, ok := protocolErrors[code]
	if !ok {
		return nil, fmt.Errorf("error code %d not found for protocol %s", code, protocol)
	}
	return errRef, nil
}

// ListAllProtocols returns the protocol families this knowledge base covers.
func (kb *KnowledgeBase) ListAllProtocols() []string {
	protocols := make([]string, 0, len(kb.errorCodes))
	for p := range kb.errorCodes {
		protocols = append(protocols, p)
	}
	return protocols
}
