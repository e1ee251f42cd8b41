// Package crypto defines the Crypto/KDF external collaborator the core
// consumes (spec.md §6) and ships one concrete implementation. Milenage/TUAK
// authentication-vector generation, the A2/A7/C4/C5 key-derivation functions
// and the EEA/EIA algorithm family are all out of scope for the core itself
// (spec.md §1); this package only defines the boundary and a usable default.
package crypto

import "errors"

// Vector is an authentication vector as returned by the HSS/AuC collaborator.
type Vector struct {
	RAND [16]byte
	AUTN [16]byte
	XRES []byte
	CK   [16]byte // 2G/3G cipher key, present for CTX 2/3
	IK   [16]byte // 3G integrity key, present for CTX 2/3
	Kasme [32]byte // native EPS master key, present for CTX 4
	Kc   [8]byte  // GSM cipher key, present for CTX 2
}

// VectorProvider produces authentication vectors, fronting the HSS/AuC and
// the Milenage/TUAK algorithms (both out of scope for this module).
type VectorProvider interface {
	GetVector(imsi string) (*Vector, error)
}

// Algorithm identifies a NAS integrity (EIA) or ciphering (EEA) algorithm,
// 0-3 per 3GPP TS 33.401.
type Algorithm uint8

const (
	AlgNull Algorithm = 0
	Alg1    Algorithm = 1
	Alg2    Algorithm = 2
	Alg3    Algorithm = 3
)

// Direction is the NAS security direction input to MAC/cipher computation.
type Direction uint8

const (
	DirectionUplink   Direction = 0
	DirectionDownlink Direction = 1
)

var ErrUnsupportedAlgorithm = errors.New("crypto: unsupported algorithm")

// KDF is the Crypto/KDF external collaborator (spec.md §6): Kasme
// derivation (A2), NAS algorithm-key derivation (A7), and the non-standard
// GSM-Kc-to-3G conversion (C4/C5) used by the CTX=2 security-context path
// (spec.md §4.2). Milenage/TUAK vector generation is reached through
// VectorProvider instead.
type KDF interface {
	// A2 derives Kasme from CK, IK, the serving network id and SQN xor AK.
	A2(ck, ik [16]byte, snid string, sqnXorAK [6]byte) [32]byte
	// A7 derives a 32-byte key from Kasme for the given algorithm-type
	// (1=NAS-enc, 2=NAS-int) and algorithm identifier, returning the
	// low 16 bytes actually used as the NAS key.
	A7(kasme [32]byte, algType uint8, alg Algorithm) [16]byte
	// C4 converts a GSM Kc into a 3G-shaped cipher key CK.
	C4(kc [8]byte) [16]byte
	// C5 converts a GSM Kc into a 3G-shaped integrity key IK.
	C5(kc [8]byte) [16]byte
}

// SecurityCodec is the MAC/cipher half of the NAS codec external
// collaborator (spec.md §6: "compute/verify MAC with (key, direction,
// algorithm, count); cipher/decipher payload with same"). pkg/nas consumes
// it to implement the security envelope; StdlibKDF below implements it
// alongside KDF so one engine backs both boundaries.
type SecurityCodec interface {
	// MACCompute returns the 32-bit NAS-MAC over msg using key, the given
	// integrity algorithm, direction and count.
	MACCompute(key [16]byte, alg Algorithm, direction Direction, count uint32, msg []byte) (uint32, error)
	// MACVerify reports whether mac matches the NAS-MAC computed the same way.
	MACVerify(key [16]byte, alg Algorithm, direction Direction, count uint32, msg []byte, mac uint32) (bool, error)
	// ShortMACCompute computes the 16-bit short-MAC used by the SH=12 short
	// service-request form (spec.md §4.1).
	ShortMACCompute(key [16]byte, alg Algorithm, direction Direction, count uint32, header []byte) (uint16, error)

	// Encrypt/Decrypt apply the EEA stream cipher keyed by key, count,
	// direction and a bearer identity fixed at 0 (single NAS bearer).
	Encrypt(key [16]byte, alg Algorithm, direction Direction, count uint32, plaintext []byte) ([]byte, error)
	Decrypt(key [16]byte, alg Algorithm, direction Direction, count uint32, ciphertext []byte) ([]byte, error)
}
