package crypto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSDKUnavailable         = errors.New("sdk key generation unavailable")
	ErrSeedTooShort           = fmt.Errorf("seed must be at least %v characters", MinSeedLength)
	ErrInvalidMnemonic        = errors.New("invalid mnemonic")
	ErrInvalidKeyType         = errors.New("invalid key type")
	ErrInvalidDerivationInput = errors.New("invalid derivation input")
)

type KeyType string

const (
	BTC     KeyType = "btc"
	Ether   KeyType = "ether"
	Stellar KeyType = "stellar"
)

var KeyTypes = []KeyType{BTC, Ether, Stellar}

func (kt KeyType) String() string {
	return string(kt)
}

func (kt KeyType) Valid() bool {
	switch kt {
	case BTC, Ether, Stellar:
		return true
	}
	return false
}

func ParseKeyType(s string) (KeyType, error) {
	kt := KeyType(strings.ToLower(strings.TrimSpace(s)))
	if !kt.Valid() {
		return "", fmt.Errorf("%w '%v': must be btc, ether or stellar", ErrInvalidKeyType, s)
	}
	return kt, nil
}

// KeyPair is the key material produced for a single node.
type KeyPair struct {
	PrivateKey string  `json:"private_key"`
	PublicKey  string  `json:"public_key"`
	Address    string  `json:"address"`
	Type       KeyType `json:"type"`
	Hint       string  `json:"hint"`
}

// WellFormed reports whether every field of kp is set and kp
// carries the expected key type.
func (kp KeyPair) WellFormed(keyType KeyType) error {
	switch {
	case len(kp.PrivateKey) == 0:
		return errors.New("missing private key")
	case len(kp.PublicKey) == 0:
		return errors.New("missing public key")
	case len(kp.Address) == 0:
		return errors.New("missing address")
	case kp.Type != keyType:
		return fmt.Errorf("expected key type '%v' but got '%v'", keyType, kp.Type)
	}
	return nil
}
