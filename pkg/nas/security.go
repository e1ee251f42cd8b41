package nas

import (
	"errors"

	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
)

// ErrorCode classifies the three security failure kinds the core
// distinguishes (spec.md §4.1/§7).
type ErrorCode int

const (
	ErrNone         ErrorCode = 0
	ErrUnknownKSI   ErrorCode = 0x100
	ErrMACFailure   ErrorCode = 0x200
	ErrULMismatch   ErrorCode = 0x300
)

// Context is a NAS security context (spec.md §3). One is stored per KSI in
// the security context map owned by pkg/emm.
type Context struct {
	Kasme   [32]byte
	Knasenc [16]byte
	Knasint [16]byte
	EEA     crypto.Algorithm
	EIA     crypto.Algorithm
	UL      uint32 // uplink NAS count
	DL      uint32 // downlink NAS count
	ULenb   uint32 // uplink count at last eNB re-key
	CTX     uint8  // 0=emergency-null, 2=mapped-from-GSM, 3=mapped-from-UMTS, 4=native-EPS
	CK, IK  [16]byte
}

// NullContext returns the fixed null/emergency security context installed
// at KSI=0 when an emergency attach proceeds without authentication
// (spec.md §4.1 "Null / emergency context").
func NullContext() *Context {
	return &Context{CTX: 0, EEA: crypto.AlgNull, EIA: crypto.AlgNull}
}

// Policy is the security tuning surface consumed by the envelope
// (spec.md §6 "Tuning surface").
type Policy struct {
	Disabled        bool
	EnforceMAC      bool
	EnforceUL       bool
	PlaintextBypass map[Kind]bool
}

// PolicyFromConfig adapts config.SecurityConfig into a Policy (spec.md §6),
// translating the config's TS 24.301 message-name list into the Kind-keyed
// lookup table the envelope actually tests against.
func PolicyFromConfig(cfg *config.Config) Policy {
	bypass := make(map[Kind]bool, len(cfg.Security.PlaintextBypass))
	for _, name := range cfg.Security.PlaintextBypass {
		if k, ok := KindByName(name); ok {
			bypass[k] = true
		}
	}
	return Policy{
		Disabled:        cfg.Security.Disabled,
		EnforceMAC:      cfg.Security.EnforceMAC,
		EnforceUL:       cfg.Security.EnforceUL,
		PlaintextBypass: bypass,
	}
}

// Result reports the outcome of processing one inbound protected NAS PDU.
type Result struct {
	Secure  bool
	ULCount uint32
	Err     ErrorCode
	Warn    string
}

// SecurityCodec is the MAC/cipher collaborator the envelope consumes,
// aliased from pkg/crypto so callers in this package don't need to
// qualify every reference to it.
type SecurityCodec = crypto.SecurityCodec

// Envelope implements the NAS security envelope: inbound verification/
// deciphering and outbound protection, grounded on HdlrUES1.py's
// process_nas / process_nas_sec / process_nas_sec_servreq / output_nas_sec.
type Envelope struct {
	Codec   SecurityCodec
	Policy  Policy
}

func NewEnvelope(codec SecurityCodec, policy Policy) *Envelope {
	return &Envelope{Codec: codec, Policy: policy}
}

// ReconstructULCount applies the full (8-bit sequence number) uplink count
// reconstruction formula from spec.md §4.1.
func ReconstructULCount(storedUL uint32, sqnLSB uint8) uint32 {
	cand := (storedUL & 0xFFFFFF00) | uint32(sqnLSB)
	if cand < storedUL {
		cand += 0x100
	}
	return cand
}

// ReconstructULCountShort applies the short (5-bit sequence number) uplink
// count reconstruction formula used for SH=12 (spec.md §4.1).
func ReconstructULCountShort(storedUL uint32, sqn5 uint8) uint32 {
	cand := (storedUL & 0xFFFFFFE0) | uint32(sqn5&0x1F)
	if cand < storedUL {
		cand += 0x20
	}
	return cand
}

// ProtectedPDU is the demultiplexed form of an inbound protected NAS PDU,
// as handed over by the NAS-codec collaborator: the outer security header,
// the visible MAC/sequence fields and the (possibly ciphered) inner bytes.
type ProtectedPDU struct {
	SH       SecurityHeader
	KSI      *uint8 // present only for SH=12
	MAC      uint32 // valid for SH in {1,2,3,4}
	ShortMAC uint16 // valid for SH=12
	SQN      uint8  // full 8-bit sqn for SH in {1,2,3,4}; low 5 bits valid for SH=12
	Header   []byte // the bytes the MAC is computed over for SH=12 (visible header only)
	Inner    []byte // inner NAS bytes, ciphered iff SH in {2,4}
}

var ErrInvalidSecurityHeader = errors.New("nas: invalid security header for protocol discriminator")

// VerifyAndDecipher verifies a protected inbound PDU against ctx and
// returns the plaintext inner NAS bytes plus the security Result. ctx may
// be nil when the KSI carried by the message is unknown or absent
// (spec.md §4.1's unknown-KSI handling); in that case the PDU is never
// decrypted and Result.Err is ErrUnknownKSI.
func (e *Envelope) VerifyAndDecipher(pdu ProtectedPDU, ctx *Context) ([]byte, Result, error) {
	if e.Policy.Disabled {
		return pdu.Inner, Result{Secure: true, ULCount: 0}, nil
	}

	if ctx == nil {
		res := Result{Secure: false, ULCount: 0, Err: ErrUnknownKSI}
		if e.Policy.EnforceUL {
			return nil, res, nil
		}
		return pdu.Inner, res, nil
	}

	switch pdu.SH {
	case SHServiceRequest:
		return e.verifyShort(pdu, ctx)
	case SHIntegrity, SHIntegrityCipher, SHIntegrityNewCtx, SHIntegrityCipherNew:
		return e.verifyFull(pdu, ctx)
	default:
		return nil, Result{}, ErrInvalidSecurityHeader
	}
}

func (e *Envelope) verifyFull(pdu ProtectedPDU, ctx *Context) ([]byte, Result, error) {
	reconstructed := ReconstructULCount(ctx.UL, pdu.SQN)

	ok, err := e.Codec.MACVerify(ctx.Knasint, ctx.EIA, crypto.DirectionUplink, reconstructed, pdu.Inner, pdu.MAC)
	if err != nil {
		return nil, Result{}, err
	}
	if !ok {
		res := Result{Secure: false, ULCount: ctx.UL, Err: ErrMACFailure}
		if e.Policy.EnforceMAC {
			return nil, res, nil
		}
		return pdu.Inner, res, nil
	}

	var mismatch *Result
	if reconstructed != ctx.UL {
		// MAC verified but the sequence number doesn't match what's
		// expected: resynchronise and surface a warning (spec.md §4.1).
		ctx.UL = reconstructed + 1
		res := Result{Secure: false, ULCount: reconstructed, Err: ErrULMismatch, Warn: "nas: UL count resynchronised"}
		if e.Policy.EnforceUL {
			return nil, res, nil
		}
		mismatch = &res
	}

	inner := pdu.Inner
	if pdu.SH == SHIntegrityCipher || pdu.SH == SHIntegrityCipherNew {
		if ctx.EEA != crypto.AlgNull {
			plain, err := e.Codec.Decrypt(ctx.Knasenc, ctx.EEA, crypto.DirectionUplink, reconstructed, pdu.Inner)
			if err != nil {
				return nil, Result{}, err
			}
			inner = plain
		}
	}

	ctx.UL = reconstructed + 1
	if mismatch != nil {
		return inner, *mismatch, nil
	}
	return inner, Result{Secure: true, ULCount: reconstructed}, nil
}

func (e *Envelope) verifyShort(pdu ProtectedPDU, ctx *Context) ([]byte, Result, error) {
	reconstructed := ReconstructULCountShort(ctx.UL, pdu.SQN)

	short, err := e.Codec.ShortMACCompute(ctx.Knasint, ctx.EIA, crypto.DirectionUplink, reconstructed, pdu.Header)
	if err != nil {
		return nil, Result{}, err
	}
	ok := short == pdu.ShortMAC
	if !ok {
		// An unverified MAC must never advance the stored UL counter
		// (matches verifyFull and HdlrUES1.py's process_nas_sec_servreq):
		// only a successful MAC check or the deliberate resync branch
		// below may do that.
		res := Result{Secure: false, ULCount: ctx.UL, Err: ErrMACFailure}
		if e.Policy.EnforceMAC {
			return nil, res, nil
		}
		return pdu.Inner, res, nil
	}

	if reconstructed != ctx.UL {
		ctx.UL = reconstructed + 1
		res := Result{Secure: false, ULCount: reconstructed, Err: ErrULMismatch}
		if e.Policy.EnforceUL {
			return nil, res, nil
		}
		return pdu.Inner, res, nil
	}

	ctx.UL = reconstructed + 1
	return pdu.Inner, Result{Secure: true, ULCount: reconstructed}, nil
}

// Protect applies outbound NAS security (spec.md §4.1 "Outbound framing").
// It returns the security header to use, the (possibly ciphered) payload,
// the MAC and the sequence byte, or ok=false if the message must go out in
// clear (security disabled, kind in the plaintext-bypass set, or no active
// context).
func (e *Envelope) Protect(kind Kind, inner []byte, ctx *Context, isSMC bool) (sh SecurityHeader, payload []byte, mac uint32, sqn uint8, ok bool, err error) {
	if e.Policy.Disabled || e.Policy.PlaintextBypass[kind] || ctx == nil {
		return SHPlain, inner, 0, 0, false, nil
	}

	sh = SHIntegrityCipher
	if isSMC {
		sh = SHIntegrityNewCtx
	}

	payload = inner
	if sh == SHIntegrityCipher && ctx.EEA != crypto.AlgNull {
		payload, err = e.Codec.Encrypt(ctx.Knasenc, ctx.EEA, crypto.DirectionDownlink, ctx.DL, inner)
		if err != nil {
			return 0, nil, 0, 0, false, err
		}
	}

	mac, err = e.Codec.MACCompute(ctx.Knasint, ctx.EIA, crypto.DirectionDownlink, ctx.DL, payload)
	if err != nil {
		return 0, nil, 0, 0, false, err
	}
	sqn = uint8(ctx.DL & 0xFF)
	ctx.DL++
	return sh, payload, mac, sqn, true, nil
}
