package utils

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

// TweakPubkey derives the receiving key for one invoice from a user's root
// public key and a tweak index: T = P + H(P || index)*G. The same
// (pubkey, index) pair always yields the same key, and distinct indices
// yield distinct keys, which is what lets one address serve many invoices.
func TweakPubkey(pubkeyHex string, index uint64) (string, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return "", errors.Wrap(err, "invalid pubkey encoding")
	}

	pubkey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return "", errors.Wrap(err, "invalid pubkey")
	}

	hasher := sha256.New()
	hasher.Write(pubkey.SerializeCompressed())
	var indexBytes [8]byte
	binary.BigEndian.PutUint64(indexBytes[:], index)
	hasher.Write(indexBytes[:])
	digest := hasher.Sum(nil)

	var scalar btcec.ModNScalar
	// Overflow reduces the scalar mod N inside SetByteSlice, which is the
	// behavior we want here.
	scalar.SetByteSlice(digest)
	if scalar.IsZero() {
		return "", errors.New("tweak scalar is zero")
	}

	var tweakPoint, basePoint, sum btcec.JacobianPoint
	pubkey.AsJacobian(&basePoint)
	btcec.ScalarBaseMultNonConst(&scalar, &tweakPoint)
	btcec.AddNonConst(&basePoint, &tweakPoint, &sum)
	sum.ToAffine()

	tweaked := btcec.NewPublicKey(&sum.X, &sum.Y)
	return hex.EncodeToString(tweaked.SerializeCompressed()), nil
}

// ValidPubkey reports whether s is a hex-encoded secp256k1 public key.
func ValidPubkey(s string) bool {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	_, err = btcec.ParsePubKey(raw)
	return err == nil
}
