package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// StdlibKDF is a concrete KDF built entirely on Go's standard-library
// primitives (crypto/aes, crypto/cipher, crypto/hmac, crypto/sha256). It is
// not a certified 3GPP Milenage/EEA/EIA implementation — no such library
// exists anywhere in the example pack this module was grounded on (see
// DESIGN.md) — but it is shape-compatible with the KDF interface the core
// depends on: same inputs, same output sizes, same algorithm-selection
// semantics, so the rest of the core can be exercised end to end.
type StdlibKDF struct{}

var (
	_ KDF           = StdlibKDF{}
	_ SecurityCodec = StdlibKDF{}
)

func feedbackKDF(out []byte, ikm []byte, label byte, extra ...[]byte) {
	mac := hmac.New(sha256.New, ikm)
	mac.Write([]byte{label})
	for _, e := range extra {
		mac.Write(e)
	}
	sum := mac.Sum(nil)
	copy(out, sum)
	for len(out) > len(sum) {
		mac.Reset()
		mac.Write(sum)
		sum = mac.Sum(nil)
		copy(out[len(sum):], sum)
	}
}

// A2 derives Kasme = KDF(CK || IK, S = FC || SNID || SQN⊕AK), with FC = 0x10
// and no length fields in S.
func (StdlibKDF) A2(ck, ik [16]byte, snid string, sqnXorAK [6]byte) [32]byte {
	var ikm [32]byte
	copy(ikm[:16], ck[:])
	copy(ikm[16:], ik[:])

	var out [32]byte
	feedbackKDF(out[:], ikm[:], 0x10, []byte(snid), sqnXorAK[:])
	return out
}

// A7 derives a NAS algorithm key from Kasme, returning the low 16 bytes.
func (StdlibKDF) A7(kasme [32]byte, algType uint8, alg Algorithm) [16]byte {
	var full [32]byte
	feedbackKDF(full[:], kasme[:], 0x15, []byte{algType, byte(alg)})
	var out [16]byte
	copy(out[:], full[16:32])
	return out
}

// C4 converts a GSM Kc into a 3G-shaped cipher key CK (TS 33.102 Annex B analog).
func (StdlibKDF) C4(kc [8]byte) [16]byte {
	var ck [16]byte
	copy(ck[:8], kc[:])
	copy(ck[8:], kc[:])
	return ck
}

// C5 converts a GSM Kc into a 3G-shaped integrity key IK (TS 33.102 Annex B analog).
func (StdlibKDF) C5(kc [8]byte) [16]byte {
	var ik [16]byte
	feedbackKDF(ik[:], kc[:], 0x20)
	return ik
}

func (s StdlibKDF) macTag(key [16]byte, alg Algorithm, direction Direction, count uint32, msg []byte) ([]byte, error) {
	if alg == AlgNull {
		return make([]byte, 4), nil
	}
	mac := hmac.New(sha256.New, key[:])
	var hdr [6]byte
	binary.BigEndian.PutUint32(hdr[:4], count)
	hdr[4] = byte(direction)
	hdr[5] = byte(alg)
	mac.Write(hdr[:])
	mac.Write(msg)
	return mac.Sum(nil), nil
}

// MACCompute returns the first 32 bits of an HMAC-SHA256 tag over (count ||
// direction || alg || msg), standing in for NIA1/NIA2/NIA3.
func (s StdlibKDF) MACCompute(key [16]byte, alg Algorithm, direction Direction, count uint32, msg []byte) (uint32, error) {
	tag, err := s.macTag(key, alg, direction, count, msg)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(tag[:4]), nil
}

// MACVerify recomputes the tag and compares in constant time.
func (s StdlibKDF) MACVerify(key [16]byte, alg Algorithm, direction Direction, count uint32, msg []byte, mac uint32) (bool, error) {
	expect, err := s.MACCompute(key, alg, direction, count, msg)
	if err != nil {
		return false, err
	}
	return expect == mac, nil
}

// ShortMACCompute is the 16-bit truncation of the same construction, used by
// the SH=12 short service-request form.
func (s StdlibKDF) ShortMACCompute(key [16]byte, alg Algorithm, direction Direction, count uint32, header []byte) (uint16, error) {
	tag, err := s.macTag(key, alg, direction, count, header)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(tag[:2]), nil
}

func (s StdlibKDF) xorStream(key [16]byte, alg Algorithm, direction Direction, count uint32, data []byte) ([]byte, error) {
	if alg == AlgNull {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	var iv [16]byte
	binary.BigEndian.PutUint32(iv[:4], count)
	iv[4] = byte(direction)
	iv[5] = byte(alg)
	stream := cipher.NewCTR(block, iv[:])
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

// Encrypt stands in for EEA1/EEA2/EEA3 with AES-CTR keyed by (key, count,
// direction, alg); EEA0 is a no-op pass-through.
func (s StdlibKDF) Encrypt(key [16]byte, alg Algorithm, direction Direction, count uint32, plaintext []byte) ([]byte, error) {
	return s.xorStream(key, alg, direction, count, plaintext)
}

// Decrypt is symmetric with Encrypt (AES-CTR is its own inverse).
func (s StdlibKDF) Decrypt(key [16]byte, alg Algorithm, direction Direction, count uint32, ciphertext []byte) ([]byte, error) {
	return s.xorStream(key, alg, direction, count, ciphertext)
}
