package esm

import (
	"testing"

	"github.com/epccore/mme-core/pkg/nas"
)

func TestESMDispatchStartsPDNConnectivityOnEBIZero(t *testing.T) {
	table := NewTable()
	started := false
	d := &Dispatcher{
		Table: table,
		NewTransaction: func(m *nas.Message) (Procedure, error) {
			started = true
			return &DefaultBearerActivation{EBI: 5}, nil
		},
	}
	_, err := d.Dispatch(&nas.Message{Kind: nas.KindPDNConnectivityRequest, EBI: 0, Secure: false})
	if err != nil {
		t.Fatal(err)
	}
	if !started {
		t.Fatal("expected a transaction to start for PDNConnectivityRequest")
	}
}

func TestESMDispatchDropsUnprotectedNonExempt(t *testing.T) {
	d := &Dispatcher{Table: NewTable()}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindDefaultBearerActivationAccept, EBI: 5, Secure: false})
	if err != nil || reply != nil {
		t.Fatalf("expected silent drop, got reply=%+v err=%v", reply, err)
	}
}

func TestESMDispatchUnmatchedOnEmptyBearerStackRepliesCause96(t *testing.T) {
	d := &Dispatcher{Table: NewTable()}
	reply, err := d.Dispatch(&nas.Message{Kind: nas.KindBearerModificationAccept, EBI: 5, Secure: true})
	if err != nil {
		t.Fatal(err)
	}
	if reply == nil || reply.Payload[0] != CauseMessageNotRecognized {
		t.Fatalf("expected cause 96, got %+v", reply)
	}
}

func TestESMClearWithEBIOnlyClearsThatStack(t *testing.T) {
	table := NewTable()
	table.Push(5, &DefaultBearerActivation{EBI: 5})
	table.Push(6, &DefaultBearerActivation{EBI: 6})
	table.SetTransaction(1, "pending")
	ebi := uint8(5)
	table.Clear(&ebi)
	if table.Top(5) != nil {
		t.Fatal("EBI-scoped clear must empty that bearer's stack")
	}
	if table.Top(6) == nil {
		t.Fatal("EBI-scoped clear must not touch other bearers")
	}
	if table.Transaction(1) == nil {
		t.Fatal("EBI-scoped clear must not touch the pending-transaction table")
	}
}

func TestESMClearWithNoEBIClearsEverything(t *testing.T) {
	table := NewTable()
	table.Push(5, &DefaultBearerActivation{EBI: 5})
	table.Push(6, &DefaultBearerActivation{EBI: 6})
	table.SetTransaction(1, "pending")
	table.Clear(nil)
	if table.Top(5) != nil || table.Top(6) != nil {
		t.Fatal("full clear must empty every bearer stack")
	}
	if table.Transaction(1) != nil {
		t.Fatal("full clear must also clear the pending-transaction table")
	}
}
