package esm

import (
	"testing"

	"github.com/epccore/mme-core/pkg/config"
)

func TestProcessPCODNSv4(t *testing.T) {
	apn := &config.APNConfig{DNSv4: []string{"8.8.8.8"}}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoDNSv4}}, apn)
	if len(resp) != 1 || string(resp[0].Payload) != "8.8.8.8" {
		t.Fatalf("expected DNSv4 response, got %+v", resp)
	}
}

func TestProcessPCOIPAllocationViaNASSetsFlag(t *testing.T) {
	apn := &config.APNConfig{}
	_, pdnAddrReq := ProcessPCO([]PCOElement{{ID: pcoIPViaNAS}}, apn)
	if !pdnAddrReq {
		t.Fatal("expected pdnAddrReq to be set by a 000A element")
	}
}

func TestProcessPCOMTUv4BigEndian(t *testing.T) {
	apn := &config.APNConfig{MTU: [2]int{1400, 1280}}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoMTUv4}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 0x05 || resp[0].Payload[1] != 0x78 {
		t.Fatalf("expected big-endian 1400, got %+v", resp)
	}
}

func TestProcessPCOPAPBypassAlwaysAcks(t *testing.T) {
	apn := &config.APNConfig{PAPBypass: true}
	req := []byte{4, 'u', 's', 'e', 'r', 4, 'p', 'a', 's', 's'}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoPAP, Payload: req}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 2 {
		t.Fatalf("expected Ack with bypass set, got %+v", resp)
	}
}

func TestProcessPCOPAPMismatchNaks(t *testing.T) {
	apn := &config.APNConfig{PAPUsers: map[string]string{"user": "right"}}
	req := []byte{4, 'u', 's', 'e', 'r', 5, 'w', 'r', 'o', 'n', 'g'}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoPAP, Payload: req}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 3 {
		t.Fatalf("expected Nak on mismatch, got %+v", resp)
	}
}

func TestProcessPCOPAPMatchAcks(t *testing.T) {
	apn := &config.APNConfig{PAPUsers: map[string]string{"user": "right"}}
	req := []byte{4, 'u', 's', 'e', 'r', 5, 'r', 'i', 'g', 'h', 't'}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoPAP, Payload: req}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 2 {
		t.Fatalf("expected Ack on match, got %+v", resp)
	}
}

func TestProcessPCOCHAPBypassSucceeds(t *testing.T) {
	apn := &config.APNConfig{CHAPBypass: true}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoCHAP}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 3 {
		t.Fatalf("expected CHAP success with bypass set, got %+v", resp)
	}
}

func TestProcessPCOCHAPWithoutBypassFails(t *testing.T) {
	apn := &config.APNConfig{}
	resp, _ := ProcessPCO([]PCOElement{{ID: pcoCHAP}}, apn)
	if len(resp) != 1 || resp[0].Payload[0] != 4 {
		t.Fatalf("expected CHAP failure without bypass, got %+v", resp)
	}
}
