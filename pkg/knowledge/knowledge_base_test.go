package knowledge

import "testing"

func TestGetErrorCodeEMM(t *testing.T) {
	kb := NewKnowledgeBase()
	ref, err := kb.GetErrorCode("EMM", 98)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Code != 98 || ref.Protocol != "EMM" {
		t.Fatalf("unexpected entry: %+v", ref)
	}
}

func TestGetErrorCodeESM(t *testing.T) {
	kb := NewKnowledgeBase()
	ref, err := kb.GetErrorCode("ESM", 65)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Name == "" || ref.StandardRef == "" {
		t.Fatalf("expected populated reference, got %+v", ref)
	}
}

func TestGetErrorCodeUnknownProtocol(t *testing.T) {
	kb := NewKnowledgeBase()
	if _, err := kb.GetErrorCode("Diameter", 5001); err == nil {
		t.Fatal("expected error for a protocol this core never produces")
	}
}

func TestGetErrorCodeUnknownCode(t *testing.T) {
	kb := NewKnowledgeBase()
	if _, err := kb.GetErrorCode("ESM", 999); err == nil {
		t.Fatal("expected error for an unrecognized ESM cause code")
	}
}

func TestListAllProtocolsCoversEMMAndESM(t *testing.T) {
	kb := NewKnowledgeBase()
	protocols := kb.ListAllProtocols()
	if len(protocols) != 2 {
		t.Fatalf("expected exactly EMM and ESM, got %v", protocols)
	}
}
