// Package nas implements the NAS security envelope (spec.md §4.1): security
// header classification, uplink/downlink count reconstruction, and the
// MAC/cipher boundary consumed from the crypto and NAS-codec collaborators.
// Parsing the inner NAS message bytes themselves is out of scope (spec.md
// §1) and is reached only through the Codec interface in this package.
package nas

import "fmt"

// ProtocolDiscriminator identifies which NAS sublayer a message belongs to.
type ProtocolDiscriminator uint8

const (
	PDCallControl ProtocolDiscriminator = 0x3
	PDSMS         ProtocolDiscriminator = 0x9
	PDSSRelated   ProtocolDiscriminator = 0xb
	PDEMM         ProtocolDiscriminator = 0x7
	PDESM         ProtocolDiscriminator = 0x2
)

// SecurityHeader is the 4-bit outer security-header-type (spec.md §4.1).
type SecurityHeader uint8

const (
	SHPlain              SecurityHeader = 0
	SHIntegrity          SecurityHeader = 1
	SHIntegrityCipher    SecurityHeader = 2
	SHIntegrityNewCtx    SecurityHeader = 3
	SHIntegrityCipherNew SecurityHeader = 4
	SHServiceRequest     SecurityHeader = 12
)

// Kind is a closed enumeration of NAS message kinds this core dispatches on,
// replacing the teacher's name-keyed lookup tables with a compile-time set
// (spec.md §9 Design Note: "Dynamic dispatch by NAS message name").
type Kind int

const (
	KindUnknown Kind = iota

	// EMM messages
	KindAttachRequest
	KindAttachAccept
	KindAttachComplete
	KindAttachReject
	KindTAURequest
	KindTAUAccept
	KindTAUComplete
	KindTAUReject
	KindServiceRequest
	KindExtServiceRequest
	KindCPServiceRequest
	KindDetachRequestMO
	KindDetachRequestMT
	KindDetachAccept
	KindAuthenticationRequest
	KindAuthenticationResponse
	KindAuthenticationReject
	KindAuthenticationFailure
	KindIdentityRequest
	KindIdentityResponse
	KindSecurityModeCommand
	KindSecurityModeComplete
	KindSecurityModeReject
	KindGUTIReallocationCommand
	KindGUTIReallocationComplete
	KindEMMStatus
	KindEMMInformation

	// ESM messages
	KindPDNConnectivityRequest
	KindPDNConnectivityReject
	KindDefaultBearerActivationRequest
	KindDefaultBearerActivationAccept
	KindDefaultBearerActivationReject
	KindBearerDeactivationRequest
	KindBearerDeactivationAccept
	KindBearerModificationRequest
	KindBearerModificationAccept
	KindBearerModificationReject
	KindESMInformationRequest
	KindESMInformationResponse
	KindESMStatus
)

var kindNames = map[Kind]string{
	KindUnknown:                        "Unknown",
	KindAttachRequest:                  "AttachRequest",
	KindAttachAccept:                   "AttachAccept",
	KindAttachComplete:                 "AttachComplete",
	KindAttachReject:                   "AttachReject",
	KindTAURequest:                     "TrackingAreaUpdateRequest",
	KindTAUAccept:                      "TrackingAreaUpdateAccept",
	KindTAUComplete:                    "TrackingAreaUpdateComplete",
	KindTAUReject:                      "TrackingAreaUpdateReject",
	KindServiceRequest:                 "ServiceRequest",
	KindExtServiceRequest:              "ExtendedServiceRequest",
	KindCPServiceRequest:               "ControlPlaneServiceRequest",
	KindDetachRequestMO:                "DetachRequestMO",
	KindDetachRequestMT:                "DetachRequestMT",
	KindDetachAccept:                   "DetachAccept",
	KindAuthenticationRequest:          "AuthenticationRequest",
	KindAuthenticationResponse:         "AuthenticationResponse",
	KindAuthenticationReject:           "AuthenticationReject",
	KindAuthenticationFailure:          "AuthenticationFailure",
	KindIdentityRequest:                "IdentityRequest",
	KindIdentityResponse:               "IdentityResponse",
	KindSecurityModeCommand:            "SecurityModeCommand",
	KindSecurityModeComplete:           "SecurityModeComplete",
	KindSecurityModeReject:             "SecurityModeReject",
	KindGUTIReallocationCommand:        "GUTIReallocationCommand",
	KindGUTIReallocationComplete:       "GUTIReallocationComplete",
	KindEMMStatus:                      "EMMStatus",
	KindEMMInformation:                 "EMMInformation",
	KindPDNConnectivityRequest:         "PDNConnectivityRequest",
	KindPDNConnectivityReject:          "PDNConnectivityReject",
	KindDefaultBearerActivationRequest: "DefaultEPSBearerContextActivationRequest",
	KindDefaultBearerActivationAccept:  "DefaultEPSBearerContextActivationAccept",
	KindDefaultBearerActivationReject:  "DefaultEPSBearerContextActivationReject",
	KindBearerDeactivationRequest:      "DeactivateEPSBearerContextRequest",
	KindBearerDeactivationAccept:       "DeactivateEPSBearerContextAccept",
	KindBearerModificationRequest:      "ModifyEPSBearerContextRequest",
	KindBearerModificationAccept:       "ModifyEPSBearerContextAccept",
	KindBearerModificationReject:       "ModifyEPSBearerContextReject",
	KindESMInformationRequest:          "ESMInformationRequest",
	KindESMInformationResponse:         "ESMInformationResponse",
	KindESMStatus:                      "ESMStatus",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindByName map[string]Kind

func init() {
	kindByName = make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		kindByName[name] = k
	}
}

// KindByName reverses String, for config-driven policy tables (e.g.
// security.plaintext_bypass) that name kinds by their TS 24.301 label.
func KindByName(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// IsEMM reports whether k belongs to the EMM sublayer.
func (k Kind) IsEMM() bool {
	return k >= KindAttachRequest && k <= KindEMMInformation
}

// IsESM reports whether k belongs to the ESM sublayer.
func (k Kind) IsESM() bool {
	return k >= KindPDNConnectivityRequest && k <= KindESMStatus
}

// securityExemptEMM is the set of EMM messages accepted even when `secure`
// is false (spec.md §4.2 step 1), verbatim from HdlrUES1.py's SEC_NOTNEED.
var securityExemptEMM = map[Kind]bool{
	KindAttachRequest:          true,
	KindIdentityResponse:       true, // IMSI-only in practice
	KindAuthenticationResponse: true,
	KindAuthenticationFailure:  true,
	KindSecurityModeReject:     true,
	KindDetachRequestMO:        true,
	KindDetachAccept:           true,
	KindTAURequest:             true,
	KindServiceRequest:         true,
	KindExtServiceRequest:      true,
}

// IsSecurityExemptEMM reports whether k may be accepted unprotected.
func IsSecurityExemptEMM(k Kind) bool {
	return securityExemptEMM[k]
}

// securityExemptESM is the set of ESM messages accepted even when `secure`
// is false; only the very first message of a new attach (spec.md §4.3).
var securityExemptESM = map[Kind]bool{
	KindPDNConnectivityRequest: true,
}

// IsSecurityExemptESM reports whether k may be accepted unprotected.
func IsSecurityExemptESM(k Kind) bool {
	return securityExemptESM[k]
}

// Message is the decoded form of one NAS PDU, as produced by a Codec. The
// security envelope decorates it with Secure/ULCount once verified
// (spec.md §4.1 "Every accepted inbound NAS message is decorated with...").
type Message struct {
	Kind    Kind
	EBI     uint8 // valid for ESM messages, 0 for EMM messages carried outside an ESM container
	KSI     *uint8
	PTI     uint8
	Payload []byte // codec-specific encoded inner IEs, opaque to this package

	Secure  bool
	ULCount uint32
}
