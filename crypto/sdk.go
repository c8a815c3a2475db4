package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// MinSeedLength is the shortest seed the key generators accept.
const MinSeedLength = 36

const (
	btcPrivateSuffix = "mpr"
	btcPublicSuffix  = "mpu"
	btcAddressSuffix = "mca"

	etherPrivateSuffix = "epr"
	etherPublicSuffix  = "epu"
	etherAddressSuffix = "eca"

	stellarPrivateSuffix = "spr"
	stellarPublicSuffix  = "spu"
	stellarAddressSuffix = "sca"
)

// Generate creates a key pair of the given type. A non nil seed makes
// the result deterministic: the private key is sha256(seed).
func Generate(keyType KeyType, seed *string) (KeyPair, error) {
	if !keyType.Valid() {
		return KeyPair{}, ErrInvalidKeyType
	}

	var privBytes []byte
	if seed != nil {
		if len(*seed) < MinSeedLength {
			return KeyPair{}, ErrSeedTooShort
		}
		hash := sha256.Sum256([]byte(*seed))
		privBytes = hash[:]
	} else {
		privBytes = make([]byte, 32)
		if _, err := rand.Read(privBytes); err != nil {
			return KeyPair{}, fmt.Errorf("%w: %v", ErrSDKUnavailable, err)
		}
	}

	return KeyPairFromPrivateKey(keyType, privBytes)
}

// KeyPairFromPrivateKey encodes the 32 byte private key in the
// format used for keyType.
func KeyPairFromPrivateKey(keyType KeyType, privBytes []byte) (KeyPair, error) {
	if len(privBytes) != 32 {
		return KeyPair{}, fmt.Errorf("invalid private key length %v", len(privBytes))
	}

	switch keyType {
	case BTC:
		return btcKeyPair(privBytes), nil
	case Ether:
		return etherKeyPair(privBytes), nil
	case Stellar:
		return stellarKeyPair(privBytes), nil
	}
	return KeyPair{}, ErrInvalidKeyType
}

func btcKeyPair(privBytes []byte) KeyPair {
	privKey, pubKey := btcec.PrivKeyFromBytes(privBytes)
	publicKey := base58.Encode(pubKey.SerializeCompressed()) + btcPublicSuffix

	return KeyPair{
		PrivateKey: base58.Encode(privKey.Serialize()) + btcPrivateSuffix,
		PublicKey:  publicKey,
		Address:    accountAddress(publicKey) + btcAddressSuffix,
		Type:       BTC,
		Hint:       btcPrivateSuffix,
	}
}

func etherKeyPair(privBytes []byte) KeyPair {
	privKey := secp256k1.PrivKeyFromBytes(privBytes)
	pubKey := privKey.PubKey()
	address := ethcrypto.PubkeyToAddress(*pubKey.ToECDSA())

	return KeyPair{
		PrivateKey: hex.EncodeToString(privKey.Serialize()) + etherPrivateSuffix,
		PublicKey:  hex.EncodeToString(pubKey.SerializeUncompressed()) + etherPublicSuffix,
		Address:    address.Hex() + etherAddressSuffix,
		Type:       Ether,
		Hint:       etherPrivateSuffix,
	}
}

func stellarKeyPair(privBytes []byte) KeyPair {
	privKey := ed25519.NewKeyFromSeed(privBytes)
	pubKey := privKey.Public().(ed25519.PublicKey)
	publicKey := base58.Encode(pubKey) + stellarPublicSuffix

	return KeyPair{
		PrivateKey: base58.Encode(privKey.Seed()) + stellarPrivateSuffix,
		PublicKey:  publicKey,
		Address:    accountAddress(publicKey) + stellarAddressSuffix,
		Type:       Stellar,
		Hint:       stellarPrivateSuffix,
	}
}

// account addresses are the base58 sha3-256 of the encoded public key
func accountAddress(publicKey string) string {
	hash := sha3.Sum256([]byte(publicKey))
	return base58.Encode(hash[:])
}
