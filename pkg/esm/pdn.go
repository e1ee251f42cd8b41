package esm

// GTPU is the subset of the GTP-U daemon collaborator the PDN lifecycle
// needs (spec.md §6): add_mobile/rem_mobile by TEID.
type GTPU interface {
	AddMobile(teid uint32, ip string) error
	RemMobile(teid uint32) error
}

// ActivateERAB flips a Suspended PDN context to Active once the eNodeB
// acknowledges ERAB setup, filling in the eNB-side TLA/TEID (spec.md §3
// "PDN Context" lifecycle) and wiring the tunnel via the GTP-U collaborator.
func ActivateERAB(table *Table, ebi uint8, enbTLA string, enbTEID uint32, gtpu GTPU) error {
	pdn := table.PDN(ebi)
	if pdn == nil {
		return nil
	}
	pdn.RAB.ENBTLA = enbTLA
	pdn.RAB.ENBTEID = enbTEID
	pdn.State = StateActive
	return gtpu.AddMobile(pdn.RAB.SGWTEID, enbTLA)
}

// SuspendPDN suspends an Active PDN context (e.g. on S1 release) without
// deleting it, tearing down the GTP-U tunnel but keeping the EBI and RAB
// parameters for later reactivation (SPEC_FULL.md §C.6).
func SuspendPDN(table *Table, ebi uint8, gtpu GTPU) error {
	pdn := table.PDN(ebi)
	if pdn == nil || pdn.State != StateActive {
		return nil
	}
	pdn.State = StateSuspended
	return gtpu.RemMobile(pdn.RAB.SGWTEID)
}

// DeletePDN tears down the GTP-U tunnel (if active) and removes the PDN
// context entirely, e.g. on EPS Bearer Deactivation.
func DeletePDN(table *Table, ebi uint8, gtpu GTPU) error {
	pdn := table.PDN(ebi)
	if pdn == nil {
		return nil
	}
	var err error
	if pdn.State == StateActive {
		err = gtpu.RemMobile(pdn.RAB.SGWTEID)
	}
	table.DeletePDN(ebi)
	return err
}
