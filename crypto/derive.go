package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	// suffixes tagging material that came from the fallback derivation
	// instead of a real key generator
	fallbackPrivateSuffix = "fpr"
	fallbackPublicSuffix  = "fpu"
	fallbackAddressSuffix = "fca"

	compressedKeyMarker = "02"
	addressMarker       = "0x"

	publicKeyHexLen = 64
	addressHexLen   = 40

	DefaultHint = "mpr"
)

// NodeSeed folds the node index into the operator supplied seed.
// Both the fallback derivation and the sdk generators hash this value,
// never the bare seed, so nodes sharing a seed get unrelated keys.
func NodeSeed(seed string, index int) string {
	return seed + "-node" + strconv.Itoa(index)
}

// DeriveKeyPair derives placeholder key material for the node at index
// by chaining sha256 over the node entropy. If seed is nil the entropy
// is 32 random bytes, otherwise it is sha256(NodeSeed(seed, index)).
//
// The output is not an elliptic curve key pair. It only gives every node
// stable, distinct strings when no key generator is usable.
func DeriveKeyPair(seed *string, index int, keyType KeyType) KeyPair {
	var entropy []byte
	if seed != nil {
		hash := sha256.Sum256([]byte(NodeSeed(*seed, index)))
		entropy = hash[:]
	} else {
		entropy = make([]byte, 32)
		rand.Read(entropy)
	}

	privKey := sha256.Sum256(entropy)
	pubKey := sha256.Sum256(privKey[:])
	address := sha256.Sum256(pubKey[:])

	return KeyPair{
		PrivateKey: hex.EncodeToString(privKey[:]) + fallbackPrivateSuffix,
		PublicKey:  compressedKeyMarker + hex.EncodeToString(pubKey[:])[:publicKeyHexLen] + fallbackPublicSuffix,
		Address:    addressMarker + hex.EncodeToString(address[:])[:addressHexLen] + fallbackAddressSuffix,
		Type:       keyType,
		Hint:       DefaultHint,
	}
}

// ValidateDerivationInput checks the inputs DeriveKeyPair relies on.
func ValidateDerivationInput(index int, keyType KeyType) error {
	if index < 0 {
		return ErrInvalidDerivationInput
	}
	if !keyType.Valid() {
		return ErrInvalidDerivationInput
	}
	return nil
}

// IsFallback reports whether kp was produced by DeriveKeyPair.
func IsFallback(kp KeyPair) bool {
	return strings.HasSuffix(kp.PrivateKey, fallbackPrivateSuffix) &&
		strings.HasSuffix(kp.PublicKey, fallbackPublicSuffix) &&
		strings.HasSuffix(kp.Address, fallbackAddressSuffix)
}
