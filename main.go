package main

import (
	"encoding/json"
	"fmt"

	"github.com/mitum-deploy/keygen/crypto"
	"github.com/mitum-deploy/keygen/genesis"
)

func main() {
	seed := "seed"

	publicKeys := make([]string, 3)
	for i := range publicKeys {
		keyPair := crypto.DeriveKeyPair(&seed, i, crypto.BTC)
		fmt.Printf("node%v address: %v\n", i, keyPair.Address)
		publicKeys[i] = keyPair.PublicKey
	}

	account := genesis.Aggregate(publicKeys, 67, "mitum", genesis.DefaultMaxParticipants, "")
	jsonAccount, err := json.Marshal(account)
	if err != nil {
		fmt.Println(err)
	}
	fmt.Printf("%s\n", jsonAccount)
}
