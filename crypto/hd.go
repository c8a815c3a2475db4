package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 coin types
const (
	btcCoinType     = 0
	etherCoinType   = 60
	stellarCoinType = 148
)

func coinType(keyType KeyType) (uint32, error) {
	switch keyType {
	case BTC:
		return btcCoinType, nil
	case Ether:
		return etherCoinType, nil
	case Stellar:
		return stellarCoinType, nil
	}
	return 0, ErrInvalidKeyType
}

// MasterFromMnemonic returns the BIP-32 master key for the mnemonic.
func MasterFromMnemonic(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("could not create master key: %v", err)
	}
	return master, nil
}

// DeriveNodeKey derives m/44'/coin'/0'/0/index from master.
func DeriveNodeKey(master *hdkeychain.ExtendedKey, keyType KeyType, index int) (*hdkeychain.ExtendedKey, error) {
	coin, err := coinType(keyType)
	if err != nil {
		return nil, err
	}
	if index < 0 || uint32(index) >= hdkeychain.HardenedKeyStart {
		return nil, ErrInvalidDerivationInput
	}

	// m/44'
	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + 44)
	if err != nil {
		return nil, err
	}

	// m/44'/coin'
	coinPath, err := purpose.Derive(hdkeychain.HardenedKeyStart + coin)
	if err != nil {
		return nil, err
	}

	// m/44'/coin'/0'
	account, err := coinPath.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}

	// m/44'/coin'/0'/0
	external, err := account.Derive(0)
	if err != nil {
		return nil, err
	}

	// m/44'/coin'/0'/0/index
	return external.Derive(uint32(index))
}

// GenerateHD creates the key pair for the node at index from a
// BIP-39 mnemonic.
func GenerateHD(keyType KeyType, mnemonic string, index int) (KeyPair, error) {
	master, err := MasterFromMnemonic(mnemonic)
	if err != nil {
		return KeyPair{}, err
	}

	nodeKey, err := DeriveNodeKey(master, keyType, index)
	if err != nil {
		return KeyPair{}, err
	}

	privKey, err := nodeKey.ECPrivKey()
	if err != nil {
		return KeyPair{}, err
	}

	return KeyPairFromPrivateKey(keyType, privKey.Serialize())
}
