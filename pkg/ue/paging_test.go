package ue

import (
	"context"
	"testing"
	"time"

	"github.com/epccore/mme-core/pkg/s1ap"
)

type fakeENB struct{ sent []*s1ap.PDU }

func (f *fakeENB) Send(pdu *s1ap.PDU) error {
	f.sent = append(f.sent, pdu)
	return nil
}

type fakePager struct {
	enbs     []ENB
	onPage   func()
	pageHits int
}

func (p *fakePager) PagingENBs(plmn string, tac uint16) []ENB {
	p.pageHits++
	if p.onPage != nil {
		p.onPage()
	}
	return p.enbs
}

func TestPageSendsNonBlockingPagingPDU(t *testing.T) {
	enb := &fakeENB{}
	pager := &fakePager{enbs: []ENB{enb}}
	Page(pager, "00101", 7, 42, nil)
	if len(enb.sent) != 1 || enb.sent[0].Code != s1ap.ProcPaging {
		t.Fatalf("expected one Paging PDU sent, got %+v", enb.sent)
	}
}

func TestPageBlockResolvesAsSoonAsConnected(t *testing.T) {
	s1 := NewS1Context()
	pager := &fakePager{
		onPage: func() {
			s1.SetRAN(&fakeENB{}, 1)
		},
	}
	ok := PageBlock(context.Background(), s1, pager, "00101", 7, 5, time.Millisecond)
	if !ok {
		t.Fatal("expected PageBlock to resolve once connected")
	}
	if pager.pageHits != 1 {
		t.Fatalf("expected exactly one paging attempt before resolving, got %d", pager.pageHits)
	}
}

func TestPageBlockTimesOutAfterRetries(t *testing.T) {
	s1 := NewS1Context()
	pager := &fakePager{}
	ok := PageBlock(context.Background(), s1, pager, "00101", 7, 3, time.Millisecond)
	if ok {
		t.Fatal("expected PageBlock to fail when the UE never connects")
	}
	if pager.pageHits != 3 {
		t.Fatalf("expected exactly PAG_RETR attempts, got %d", pager.pageHits)
	}
}
