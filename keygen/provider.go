package keygen

import (
	"log/slog"

	"github.com/mitum-deploy/keygen/crypto"
)

// Provider produces the key pair for the node at index.
type Provider interface {
	Produce(index int) (crypto.KeyPair, error)
}

// SDKProvider generates real key pairs of a single type. With a seed,
// node keys are derived from crypto.NodeSeed(seed, index).
type SDKProvider struct {
	KeyType crypto.KeyType
	Seed    *string
}

func (p *SDKProvider) Produce(index int) (crypto.KeyPair, error) {
	if p.Seed == nil {
		return crypto.Generate(p.KeyType, nil)
	}
	nodeSeed := crypto.NodeSeed(*p.Seed, index)
	return crypto.Generate(p.KeyType, &nodeSeed)
}

// HDProvider derives node keys from a BIP-39 mnemonic.
type HDProvider struct {
	KeyType  crypto.KeyType
	Mnemonic string
}

func (p *HDProvider) Produce(index int) (crypto.KeyPair, error) {
	return crypto.GenerateHD(p.KeyType, p.Mnemonic, index)
}

// FallbackProvider wraps a Primary provider. When Primary fails, returns
// a malformed key pair or is nil, the key pair is derived with
// crypto.DeriveKeyPair instead.
type FallbackProvider struct {
	Primary Provider
	KeyType crypto.KeyType
	Seed    *string
	logger  *slog.Logger
}

func NewFallbackProvider(primary Provider, keyType crypto.KeyType, seed *string, logger *slog.Logger) *FallbackProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackProvider{
		Primary: primary,
		KeyType: keyType,
		Seed:    seed,
		logger:  logger,
	}
}

func (p *FallbackProvider) Produce(index int) (crypto.KeyPair, error) {
	if err := crypto.ValidateDerivationInput(index, p.KeyType); err != nil {
		return crypto.KeyPair{}, err
	}

	if p.Primary == nil {
		p.logger.Debug("deriving fallback keys", slog.String("node", NodeName(index)))
		return crypto.DeriveKeyPair(p.Seed, index, p.KeyType), nil
	}

	keyPair, err := p.Primary.Produce(index)
	if err == nil {
		err = keyPair.WellFormed(p.KeyType)
	}
	if err != nil {
		p.logger.Warn("key generation failed, using fallback derivation",
			slog.String("node", NodeName(index)), slog.String("error", err.Error()))
		return crypto.DeriveKeyPair(p.Seed, index, p.KeyType), nil
	}

	return keyPair, nil
}

// NewProvider returns the provider chain for config.
func NewProvider(config Config, logger *slog.Logger) Provider {
	var primary Provider
	switch {
	case config.DisableSDK:
	case len(config.Mnemonic) > 0:
		primary = &HDProvider{KeyType: config.KeyType, Mnemonic: config.Mnemonic}
	default:
		primary = &SDKProvider{KeyType: config.KeyType, Seed: config.Seed}
	}
	return NewFallbackProvider(primary, config.KeyType, config.Seed, logger)
}
