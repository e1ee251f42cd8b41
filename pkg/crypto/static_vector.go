package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// StaticVectorProvider is a deterministic stand-in for the HSS/AuC
// collaborator (spec.md §6): Milenage/TUAK subscriber-key storage and
// SQN management are out of scope for this module and no such library
// exists anywhere in the example pack this module was grounded on (see
// DESIGN.md). Vectors are derived from a per-deployment root key and the
// IMSI via HMAC-SHA256, not real Milenage, but are shape-compatible and
// deterministic per IMSI so repeated Attach/TAU runs are reproducible.
type StaticVectorProvider struct {
	Root [32]byte
}

var _ VectorProvider = StaticVectorProvider{}

func (p StaticVectorProvider) GetVector(imsi string) (*Vector, error) {
	mac := hmac.New(sha256.New, p.Root[:])
	mac.Write([]byte(imsi))
	seed := mac.Sum(nil)

	v := &Vector{}
	copy(v.RAND[:], derive(seed, 0x01))
	copy(v.AUTN[:], derive(seed, 0x02))
	v.XRES = derive(seed, 0x03)[:8]
	copy(v.CK[:], derive(seed, 0x04))
	copy(v.IK[:], derive(seed, 0x05))
	full := derive(seed, 0x06)
	full2 := derive(seed, 0x07)
	copy(v.Kasme[:16], full)
	copy(v.Kasme[16:], full2)
	copy(v.Kc[:], derive(seed, 0x08)[:8])
	return v, nil
}

func derive(seed []byte, label byte) []byte {
	mac := hmac.New(sha256.New, seed)
	mac.Write([]byte{label})
	return mac.Sum(nil)
}
