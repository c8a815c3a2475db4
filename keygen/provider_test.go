package keygen

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mitum-deploy/keygen/crypto"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type failingProvider struct {
	calls int
}

func (p *failingProvider) Produce(index int) (crypto.KeyPair, error) {
	p.calls++
	return crypto.KeyPair{}, crypto.ErrSDKUnavailable
}

type malformedProvider struct{}

func (p *malformedProvider) Produce(index int) (crypto.KeyPair, error) {
	return crypto.KeyPair{PublicKey: "onlypublic", Type: crypto.BTC}, nil
}

type wrongTypeProvider struct{}

func (p *wrongTypeProvider) Produce(index int) (crypto.KeyPair, error) {
	return crypto.Generate(crypto.Ether, nil)
}

func TestFallbackProviderRecovers(t *testing.T) {
	seed := "abc"

	primaries := []Provider{
		&failingProvider{},
		&malformedProvider{},
		&wrongTypeProvider{},
		// seed too short for the generator
		&SDKProvider{KeyType: crypto.BTC, Seed: &seed},
		&HDProvider{KeyType: crypto.BTC, Mnemonic: "invalid mnemonic phrase"},
		nil,
	}

	for _, primary := range primaries {
		provider := NewFallbackProvider(primary, crypto.BTC, &seed, testLogger)
		for i := 0; i < 3; i++ {
			keyPair, err := provider.Produce(i)
			if err != nil {
				t.Fatalf("expected fallback to recover but got error: %v", err)
			}
			expected := crypto.DeriveKeyPair(&seed, i, crypto.BTC)
			if keyPair != expected {
				t.Fatalf("expected fallback key pair '%v' but got '%v'", expected, keyPair)
			}
		}
	}
}

func TestFallbackProviderUsesPrimary(t *testing.T) {
	seed := "a seed long enough for the key generator to use it"
	sdk := &SDKProvider{KeyType: crypto.Stellar, Seed: &seed}
	provider := NewFallbackProvider(sdk, crypto.Stellar, &seed, testLogger)

	keyPair, err := provider.Produce(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crypto.IsFallback(keyPair) {
		t.Fatal("expected key pair from primary provider, not fallback")
	}

	nodeSeed := crypto.NodeSeed(seed, 2)
	expected, _ := crypto.Generate(crypto.Stellar, &nodeSeed)
	if keyPair != expected {
		t.Fatalf("expected '%v' but got '%v'", expected, keyPair)
	}
}

func TestFallbackProviderInvalidInput(t *testing.T) {
	primary := &failingProvider{}
	provider := NewFallbackProvider(primary, crypto.BTC, nil, testLogger)

	if _, err := provider.Produce(-1); !errors.Is(err, crypto.ErrInvalidDerivationInput) {
		t.Fatalf("expected '%v' but got '%v'", crypto.ErrInvalidDerivationInput, err)
	}
	if primary.calls != 0 {
		t.Fatal("primary provider should not be called for invalid input")
	}
}

func TestNewProvider(t *testing.T) {
	config := DefaultConfig()

	provider := NewProvider(config, testLogger).(*FallbackProvider)
	if _, ok := provider.Primary.(*SDKProvider); !ok {
		t.Fatalf("expected sdk provider but got '%T'", provider.Primary)
	}

	config.Mnemonic = "half depart obvious quality work element tank gorilla view sugar picture humble"
	provider = NewProvider(config, testLogger).(*FallbackProvider)
	if _, ok := provider.Primary.(*HDProvider); !ok {
		t.Fatalf("expected hd provider but got '%T'", provider.Primary)
	}

	config.DisableSDK = true
	provider = NewProvider(config, testLogger).(*FallbackProvider)
	if provider.Primary != nil {
		t.Fatalf("expected no primary provider but got '%T'", provider.Primary)
	}
}
