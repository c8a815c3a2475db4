package genesis

import (
	"errors"
	"fmt"
)

const (
	// TotalWeight is the weight shared among the keys of an account.
	TotalWeight = 100

	// DefaultMaxParticipants caps how many node keys join the genesis account.
	DefaultMaxParticipants = 3
)

var (
	ErrWeightSum        = errors.New("genesis key weights do not sum to 100")
	ErrInvalidThreshold = errors.New("threshold must be between 1 and 100")
)

type WeightedKey struct {
	Key    string `json:"key" yaml:"key" cbor:"key"`
	Weight uint   `json:"weight" yaml:"weight" cbor:"weight"`
}

// Account is the multi-signature genesis account for a node set.
//
// Address is a placeholder: it is the account address of the first
// participating node, not an address derived from the key set.
type Account struct {
	Address   string        `json:"address" yaml:"address" cbor:"address"`
	Threshold uint          `json:"threshold" yaml:"threshold" cbor:"threshold"`
	Keys      []WeightedKey `json:"keys" yaml:"keys" cbor:"keys"`
}

// Weights splits TotalWeight among n keys. Every key gets 100/n and
// the last one also takes the remainder.
func Weights(n int) []uint {
	if n <= 0 {
		return nil
	}

	base := uint(TotalWeight / n)
	remainder := uint(TotalWeight) - base*uint(n)

	weights := make([]uint, n)
	for i := range weights {
		weights[i] = base
	}
	weights[n-1] += remainder
	return weights
}

// Aggregate builds the genesis account from the first maxParticipants
// public keys, in the order they were generated. representative is used
// as the account address. It returns nil when there are no keys.
func Aggregate(publicKeys []string, threshold uint, networkID string, maxParticipants int, representative string) *Account {
	selected := min(maxParticipants, len(publicKeys))
	if selected <= 0 {
		return nil
	}

	weights := Weights(selected)
	keys := make([]WeightedKey, selected)
	for i := 0; i < selected; i++ {
		keys[i] = WeightedKey{Key: publicKeys[i], Weight: weights[i]}
	}

	account := &Account{
		Address:   representative,
		Threshold: threshold,
		Keys:      keys,
	}
	if account.Sum() != TotalWeight {
		panic(fmt.Errorf("%w: network '%v' got %v", ErrWeightSum, networkID, account.Sum()))
	}

	return account
}

func (a *Account) Sum() uint {
	var sum uint
	for _, key := range a.Keys {
		sum += key.Weight
	}
	return sum
}

// Validate checks an account read back from storage or disk.
func (a *Account) Validate() error {
	if a.Threshold < 1 || a.Threshold > TotalWeight {
		return ErrInvalidThreshold
	}
	if len(a.Keys) == 0 {
		return errors.New("genesis account has no keys")
	}
	if sum := a.Sum(); sum != TotalWeight {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}

// PublicKeys returns the participating keys in order.
func (a *Account) PublicKeys() []string {
	keys := make([]string, len(a.Keys))
	for i, key := range a.Keys {
		keys[i] = key.Key
	}
	return keys
}
