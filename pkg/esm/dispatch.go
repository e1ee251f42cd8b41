package esm

import "github.com/epccore/mme-core/pkg/nas"

const (
	CauseMessageNotCompatibleWithProtocolState uint8 = 98
	CauseMessageNotRecognized                  uint8 = 96
)

func esmStatus(ebi uint8, cause uint8) *nas.Message {
	return &nas.Message{Kind: nas.KindESMStatus, EBI: ebi, Payload: []byte{cause}}
}

// Dispatcher implements the ESM routing algorithm, bearer-scoped analogue
// of pkg/emm's Dispatcher (spec.md §4.3 "Routing"): the inbound EBI selects
// one of sixteen per-bearer stacks.
type Dispatcher struct {
	Table        *Table
	StatusPolicy StatusPolicy
	NewTransaction func(m *nas.Message) (Procedure, error)
}

// Dispatch routes one inbound ESM message (already unwrapped from its
// carrying EMM container, if any) per spec.md §4.3.
func (d *Dispatcher) Dispatch(m *nas.Message) (*nas.Message, error) {
	if !m.Secure && !nas.IsSecurityExemptESM(m.Kind) {
		return nil, nil
	}

	if m.Kind == nas.KindESMStatus {
		switch d.StatusPolicy {
		case StatusAbortTop:
			if p := d.Table.Pop(m.EBI); p != nil {
				p.Abort()
			}
		case StatusAbortStack:
			d.Table.stackFor(m.EBI).clear()
		case StatusAbortAll:
			d.Table.Clear(nil)
		}
		return nil, nil
	}

	if top := d.Table.Top(m.EBI); top != nil && top.Filter()[m.Kind] {
		out, err := top.Process(m)
		if err != nil {
			return nil, err
		}
		if out.Done {
			d.Table.Pop(m.EBI)
		}
		return out.Reply, nil
	}

	if d.Table.Top(m.EBI) != nil {
		return esmStatus(m.EBI, CauseMessageNotCompatibleWithProtocolState), nil
	}

	if m.Kind == nas.KindPDNConnectivityRequest && d.NewTransaction != nil {
		proc, err := d.NewTransaction(m)
		if err != nil {
			return nil, err
		}
		d.Table.Push(m.EBI, proc)
		out, err := proc.Process(m)
		if err != nil {
			return nil, err
		}
		if out.Done {
			d.Table.Pop(m.EBI)
		}
		return out.Reply, nil
	}

	return esmStatus(m.EBI, CauseMessageNotRecognized), nil
}
