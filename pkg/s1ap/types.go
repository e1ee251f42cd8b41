// Package s1ap implements the UE-associated S1AP procedure registry
// (spec.md §4.1 "S1AP procedure registry"): dispatch by procedure code, the
// duplicate-class-1 guard, and ErrorIndication cause selection. Encoding and
// decoding the actual S1AP PDUs is out of scope (spec.md §1) and reached
// only through the Codec interface.
package s1ap

import "fmt"

// ProcedureCode identifies an S1AP procedure, matching the codes in
// 3GPP TS 36.413. The vocabulary below is adapted from the teacher's
// protocol-monitoring decoder (pkg/decoder/s1ap's procedure-name table),
// repurposed here from passive naming into an active dispatch key.
type ProcedureCode int

const (
	ProcHandoverPreparation ProcedureCode = iota
	ProcHandoverResourceAllocation
	ProcHandoverNotification
	ProcPathSwitchRequest
	ProcHandoverCancel
	ProcERABSetup
	ProcERABModify
	ProcERABRelease
	ProcERABReleaseIndication
	ProcInitialContextSetup
	ProcPaging
	ProcDownlinkNASTransport
	ProcInitialUEMessage
	ProcUplinkNASTransport
	ProcReset
	ProcErrorIndication
	ProcNASNonDeliveryIndication
	ProcS1Setup
	ProcUEContextReleaseRequest
	ProcDownlinkS1cdma2000Tunnelling
	ProcUplinkS1cdma2000Tunnelling
	ProcUEContextModification
	ProcUECapabilityInfoIndication
	ProcUEContextRelease
	ProcENBStatusTransfer
	ProcMMEStatusTransfer
	ProcDeactivateTrace
	ProcTraceStart
	ProcTraceFailureIndication
	ProcENBConfigurationUpdate
	ProcMMEConfigurationUpdate
	ProcLocationReportingControl
	ProcLocationReportingFailureIndication
	ProcLocationReport
	ProcOverloadStart
	ProcOverloadStop
	ProcWriteReplaceWarning
	ProcENBDirectInformationTransfer
	ProcMMEDirectInformationTransfer
	ProcPrivateMessage
	ProcENBConfigurationTransfer
	ProcMMEConfigurationTransfer
	ProcCellTrafficTrace
	ProcKill
	ProcDownlinkUEAssociatedLPPaTransport
	ProcUplinkUEAssociatedLPPaTransport
	ProcDownlinkNonUEAssociatedLPPaTransport
	ProcUplinkNonUEAssociatedLPPaTransport
)

var procedureNames = map[ProcedureCode]string{
	ProcHandoverPreparation:                  "HandoverPreparation",
	ProcHandoverResourceAllocation:            "HandoverResourceAllocation",
	ProcHandoverNotification:                  "HandoverNotification",
	ProcPathSwitchRequest:                     "PathSwitchRequest",
	ProcHandoverCancel:                        "HandoverCancel",
	ProcERABSetup:                             "E-RABSetup",
	ProcERABModify:                            "E-RABModify",
	ProcERABRelease:                           "E-RABRelease",
	ProcERABReleaseIndication:                 "E-RABReleaseIndication",
	ProcInitialContextSetup:                   "InitialContextSetup",
	ProcPaging:                                "Paging",
	ProcDownlinkNASTransport:                  "DownlinkNASTransport",
	ProcInitialUEMessage:                      "InitialUEMessage",
	ProcUplinkNASTransport:                    "UplinkNASTransport",
	ProcReset:                                 "Reset",
	ProcErrorIndication:                       "ErrorIndication",
	ProcNASNonDeliveryIndication:              "NASNonDeliveryIndication",
	ProcS1Setup:                               "S1Setup",
	ProcUEContextReleaseRequest:               "UEContextReleaseRequest",
	ProcDownlinkS1cdma2000Tunnelling:          "DownlinkS1cdma2000Tunnelling",
	ProcUplinkS1cdma2000Tunnelling:            "UplinkS1cdma2000Tunnelling",
	ProcUEContextModification:                 "UEContextModification",
	ProcUECapabilityInfoIndication:            "UECapabilityInfoIndication",
	ProcUEContextRelease:                      "UEContextRelease",
	ProcENBStatusTransfer:                     "eNBStatusTransfer",
	ProcMMEStatusTransfer:                     "MMEStatusTransfer",
	ProcDeactivateTrace:                       "DeactivateTrace",
	ProcTraceStart:                            "TraceStart",
	ProcTraceFailureIndication:                "TraceFailureIndication",
	ProcENBConfigurationUpdate:                "ENBConfigurationUpdate",
	ProcMMEConfigurationUpdate:                "MMEConfigurationUpdate",
	ProcLocationReportingControl:              "LocationReportingControl",
	ProcLocationReportingFailureIndication:    "LocationReportingFailureIndication",
	ProcLocationReport:                        "LocationReport",
	ProcOverloadStart:                         "OverloadStart",
	ProcOverloadStop:                          "OverloadStop",
	ProcWriteReplaceWarning:                   "WriteReplaceWarning",
	ProcENBDirectInformationTransfer:          "eNBDirectInformationTransfer",
	ProcMMEDirectInformationTransfer:          "MMEDirectInformationTransfer",
	ProcPrivateMessage:                        "PrivateMessage",
	ProcENBConfigurationTransfer:              "eNBConfigurationTransfer",
	ProcMMEConfigurationTransfer:              "MMEConfigurationTransfer",
	ProcCellTrafficTrace:                      "CellTrafficTrace",
	ProcKill:                                  "Kill",
	ProcDownlinkUEAssociatedLPPaTransport:     "DownlinkUEAssociatedLPPaTransport",
	ProcUplinkUEAssociatedLPPaTransport:       "UplinkUEAssociatedLPPaTransport",
	ProcDownlinkNonUEAssociatedLPPaTransport:  "DownlinkNonUEAssociatedLPPaTransport",
	ProcUplinkNonUEAssociatedLPPaTransport:    "UplinkNonUEAssociatedLPPaTransport",
}

func (p ProcedureCode) String() string {
	if name, ok := procedureNames[p]; ok {
		return name
	}
	return fmt.Sprintf("S1AP_Procedure_%d", int(p))
}

// Class identifies whether a procedure expects a response (class 1) or not
// (class 2), per 3GPP TS 36.413 Annex title conventions.
type Class int

const (
	ClassUnknown Class = iota
	Class1             // response-expected, e.g. InitialContextSetup, E-RABSetup
	Class2             // no response expected, e.g. DownlinkNASTransport
)

var class1Procedures = map[ProcedureCode]bool{
	ProcHandoverPreparation:        true,
	ProcHandoverResourceAllocation: true,
	ProcPathSwitchRequest:          true,
	ProcERABSetup:                  true,
	ProcERABModify:                 true,
	ProcERABRelease:                true,
	ProcInitialContextSetup:        true,
	ProcUEContextModification:      true,
	ProcUEContextRelease:           true,
	ProcS1Setup:                    true,
}

// ClassOf reports the class of a procedure code.
func ClassOf(p ProcedureCode) Class {
	if class1Procedures[p] {
		return Class1
	}
	return Class2
}

// CauseGroup is the outer group of an S1AP Cause IE.
type CauseGroup string

const (
	CauseGroupRadioNetwork CauseGroup = "radioNetwork"
	CauseGroupTransport    CauseGroup = "transport"
	CauseGroupNAS          CauseGroup = "nas"
	CauseGroupProtocol     CauseGroup = "protocol"
	CauseGroupMisc         CauseGroup = "misc"
)

// Cause is an S1AP Cause IE (group, value).
type Cause struct {
	Group CauseGroup
	Value string
}

var (
	CauseAbstractSyntaxErrorReject             = Cause{CauseGroupProtocol, "abstract-syntax-error-reject"}
	CauseMessageNotCompatibleWithReceiverState = Cause{CauseGroupProtocol, "message-not-compatible-with-receiver-state"}
)
