package esm

import "github.com/epccore/mme-core/pkg/config"

// PCO element IDs (spec.md §4.4), as carried in a Protocol Configuration
// Options container.
const (
	pcoIPCP     uint16 = 0x8021
	pcoLCP      uint16 = 0xC021
	pcoPAP      uint16 = 0xC023
	pcoCHAP     uint16 = 0xC223
	pcoDNSv6    uint16 = 0x0003
	pcoIPViaNAS uint16 = 0x000A
	pcoDNSv4    uint16 = 0x000D
	pcoMTUv4    uint16 = 0x0010
	pcoMTUNonIP uint16 = 0x0015
)

// configProtocolPPPIP is the only configuration-protocol value answerIPCP
// accepts. It is compared with the first payload byte of each IPCP element:
// an IPCP element carrying any other value gets no response element, and
// the other elements of the container are still answered.
const configProtocolPPPIP = 0x00

// PCOElement is one typed PCO request element.
type PCOElement struct {
	ID      uint16
	Payload []byte
}

// ipcpOptions mirrors NCP config-request option types inside an IPCP element.
const (
	ipcpOptAddr    = 3
	ipcpOptDNS1    = 129
	ipcpOptDNS2    = 131
)

// ProcessPCO answers each request element in order (spec.md §4.4), returning
// the response elements and whether the PDN address must remain in the
// signalling container (set by a 000A element).
func ProcessPCO(req []PCOElement, apn *config.APNConfig) (resp []PCOElement, pdnAddrReq bool) {
	dnsv4Used := 0
	for _, el := range req {
		switch el.ID {
		case pcoIPCP:
			if ack, ok := answerIPCP(el, apn, &dnsv4Used); ok {
				resp = append(resp, ack)
			}
		case pcoLCP:
			// not answered: no response element.
		case pcoPAP:
			resp = append(resp, answerPAP(el, apn))
		case pcoCHAP:
			resp = append(resp, answerCHAP(apn))
		case pcoDNSv6:
			if len(apn.DNSv6) > 0 {
				resp = append(resp, PCOElement{ID: pcoDNSv6, Payload: []byte(apn.DNSv6[0])})
			}
		case pcoIPViaNAS:
			pdnAddrReq = true
		case pcoDNSv4:
			if len(apn.DNSv4) > 0 {
				resp = append(resp, PCOElement{ID: pcoDNSv4, Payload: []byte(apn.DNSv4[0])})
			}
		case pcoMTUv4:
			resp = append(resp, PCOElement{ID: pcoMTUv4, Payload: be16(apn.MTU[0])})
		case pcoMTUNonIP:
			resp = append(resp, PCOElement{ID: pcoMTUNonIP, Payload: be16(apn.MTU[1])})
		}
	}
	return resp, pdnAddrReq
}

// answerIPCP walks the sub-options of one IPCP config-request and builds
// an NCP Config-Ack (code 2) echoing the request id.
func answerIPCP(el PCOElement, apn *config.APNConfig, dnsv4Used *int) (PCOElement, bool) {
	if len(el.Payload) < 4 {
		return PCOElement{}, false
	}
	if el.Payload[0] != configProtocolPPPIP {
		return PCOElement{}, false
	}
	reqID := el.Payload[1]
	opts := el.Payload[4:]

	out := []byte{2, reqID} // code=2 (Config-Ack), echoed id
	i := 0
	for i < len(opts) {
		optType := opts[i]
		switch optType {
		case ipcpOptAddr:
			if apn.IPv4Addr == "" {
				i++
				continue
			}
			out = append(out, optType)
			out = append(out, []byte(apn.IPv4Addr)...)
		case ipcpOptDNS1, ipcpOptDNS2:
			if *dnsv4Used >= len(apn.DNSv4) {
				i++
				continue
			}
			out = append(out, optType)
			out = append(out, []byte(apn.DNSv4[*dnsv4Used])...)
			*dnsv4Used++
		}
		i++
	}
	return PCOElement{ID: pcoIPCP, Payload: out}, true
}

func answerPAP(el PCOElement, apn *config.APNConfig) PCOElement {
	if apn.PAPBypass {
		return PCOElement{ID: pcoPAP, Payload: []byte{2}} // Ack
	}
	peerID, password, ok := parsePAPRequest(el.Payload)
	if ok {
		if want, exists := apn.PAPUsers[peerID]; exists && want == password {
			return PCOElement{ID: pcoPAP, Payload: []byte{2}} // Ack, empty msg
		}
	}
	nak := append([]byte{3}, []byte("you loose")...) // Nak, matches the original message text
	return PCOElement{ID: pcoPAP, Payload: nak}
}

// parsePAPRequest extracts (peer-id, password) from a PAP
// authenticate-request payload: 1-byte peer-id length, peer-id,
// 1-byte password length, password.
func parsePAPRequest(b []byte) (peerID, password string, ok bool) {
	if len(b) < 1 {
		return "", "", false
	}
	idLen := int(b[0])
	if len(b) < 1+idLen+1 {
		return "", "", false
	}
	peerID = string(b[1 : 1+idLen])
	pwLen := int(b[1+idLen])
	if len(b) < 1+idLen+1+pwLen {
		return "", "", false
	}
	password = string(b[1+idLen+1 : 1+idLen+1+pwLen])
	return peerID, password, true
}

func answerCHAP(apn *config.APNConfig) PCOElement {
	if apn.CHAPBypass {
		return PCOElement{ID: pcoCHAP, Payload: []byte{3}} // Success
	}
	return PCOElement{ID: pcoCHAP, Payload: []byte{4}} // Failure
}

func be16(v int) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
