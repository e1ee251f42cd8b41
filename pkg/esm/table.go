package esm

// ebiStack is the ordered list of procedures in progress for one EBI.
type ebiStack struct {
	procs []Procedure
}

func (s *ebiStack) top() Procedure {
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

func (s *ebiStack) push(p Procedure) { s.procs = append(s.procs, p) }

func (s *ebiStack) pop() Procedure {
	if len(s.procs) == 0 {
		return nil
	}
	p := s.procs[len(s.procs)-1]
	s.procs = s.procs[:len(s.procs)-1]
	return p
}

func (s *ebiStack) clear() {
	for len(s.procs) > 0 {
		if p := s.pop(); p != nil {
			p.Abort()
		}
	}
}

// Table is the ESM Procedure Table (spec.md §3): a mapping EBI (0-15) to
// ordered procedure stack, plus the pending-transaction map keyed by PTI.
// EBI 0 is reserved for procedures without a bearer (e.g. Info Request);
// EBIs 5-15 are assignable to user PDN contexts. Grounded on UEESMd.EBI /
// UEESMd.Trans in HdlrUES1.py.
type Table struct {
	stacks map[uint8]*ebiStack
	pdns   map[uint8]*PDNContext
	pti    map[uint8]interface{} // pending transaction, opaque to the table itself
}

func NewTable() *Table {
	return &Table{
		stacks: make(map[uint8]*ebiStack),
		pdns:   make(map[uint8]*PDNContext),
		pti:    make(map[uint8]interface{}),
	}
}

func (t *Table) stackFor(ebi uint8) *ebiStack {
	s, ok := t.stacks[ebi]
	if !ok {
		s = &ebiStack{}
		t.stacks[ebi] = s
	}
	return s
}

// Top returns the topmost procedure for ebi, or nil.
func (t *Table) Top(ebi uint8) Procedure { return t.stackFor(ebi).top() }

// Push starts a new procedure on ebi's stack.
func (t *Table) Push(ebi uint8, p Procedure) { t.stackFor(ebi).push(p) }

// Pop removes and returns ebi's topmost procedure.
func (t *Table) Pop(ebi uint8) Procedure { return t.stackFor(ebi).pop() }

// Clear implements spec.md §5's two ESM clear shapes:
//   - Clear(ebi) aborts only that bearer's stack.
//   - Clear() with ebi == nil aborts every bearer stack *and* clears the
//     pending-transaction (PTI) table — the nuance carried over from
//     HdlrUES1.py's full ESM.clear().
func (t *Table) Clear(ebi *uint8) {
	if ebi != nil {
		t.stackFor(*ebi).clear()
		return
	}
	for _, s := range t.stacks {
		s.clear()
	}
	t.pti = make(map[uint8]interface{})
}

// SetPDN installs or replaces the PDN context at ebi.
func (t *Table) SetPDN(ebi uint8, ctx *PDNContext) { t.pdns[ebi] = ctx }

// PDN returns the PDN context at ebi, or nil.
func (t *Table) PDN(ebi uint8) *PDNContext { return t.pdns[ebi] }

// DeletePDN removes the PDN context at ebi.
func (t *Table) DeletePDN(ebi uint8) { delete(t.pdns, ebi) }

// AllocateEBI returns the first unused EBI in 5-15, or ok=false if all are
// in use (spec.md §4.3 step 5).
func (t *Table) AllocateEBI() (ebi uint8, ok bool) {
	for e := uint8(5); e <= 15; e++ {
		if _, used := t.pdns[e]; !used {
			return e, true
		}
	}
	return 0, false
}

// SetTransaction records a pending UE-initiated transaction under pti.
func (t *Table) SetTransaction(pti uint8, tx interface{}) { t.pti[pti] = tx }

// Transaction returns the pending transaction at pti, or nil.
func (t *Table) Transaction(pti uint8) interface{} { return t.pti[pti] }

// ClearTransaction removes the pending transaction at pti.
func (t *Table) ClearTransaction(pti uint8) { delete(t.pti, pti) }
