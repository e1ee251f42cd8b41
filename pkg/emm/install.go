package emm

import (
	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/nas"
)

// InstallFromVector builds a fresh nas.Context from an authentication
// vector per the CTX branch named (spec.md §4.2 "Security-context
// installation"):
//
//	CTXNativeEPS  (4): Kasme comes directly from the vector.
//	CTXMappedUMTS (3): Kasme is derived from CK/IK via KDF.A2 (UMTS-mapped).
//	CTXMappedGSM  (2): CK = KDF.C4(Kc), IK = KDF.C5(Kc), then KDF.A2 with an
//	                    all-zero SQN xor AK; flagged non-standard — GSM
//	                    vectors mapped all the way to an EPS context are not
//	                    part of the normal 3GPP flow, but HdlrUES1.py
//	                    supports it and so do we.
//
// UL, DL and the eNB-facing UL counter are zeroed; no algorithm is selected
// yet — that happens when the owning SecurityModeControl procedure
// completes and calls CompleteSMC.
func InstallFromVector(ctxKind CTX, vector *crypto.Vector, kdf crypto.KDF, snid string) *nas.Context {
	ctx := &nas.Context{CK: vector.CK, IK: vector.IK}

	switch ctxKind {
	case CTXNativeEPS:
		ctx.Kasme = vector.Kasme
	case CTXMappedUMTS:
		var sqnXorAK [6]byte
		copy(sqnXorAK[:], vector.AUTN[:6])
		ctx.Kasme = kdf.A2(vector.CK, vector.IK, snid, sqnXorAK)
	case CTXMappedGSM:
		ctx.CK = kdf.C4(vector.Kc)
		ctx.IK = kdf.C5(vector.Kc)
		ctx.Kasme = kdf.A2(ctx.CK, ctx.IK, snid, [6]byte{})
	default:
		ctx.Kasme = vector.Kasme
	}
	ctx.CTX = uint8(ctxKind)
	return ctx
}

// CompleteSMC derives Knasenc/Knasint for the algorithm pair negotiated by a
// SecurityModeControl procedure and installs them into ctx (spec.md §4.2).
func CompleteSMC(ctx *nas.Context, kdf crypto.KDF, eea, eia int) {
	ctx.EEA = crypto.Algorithm(eea)
	ctx.EIA = crypto.Algorithm(eia)
	ctx.Knasenc = kdf.A7(ctx.Kasme, 1, ctx.EEA)
	ctx.Knasint = kdf.A7(ctx.Kasme, 2, ctx.EIA)
}
