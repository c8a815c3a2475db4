package keygen

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mitum-deploy/keygen/crypto"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testGenerator(t *testing.T, config Config) *Generator {
	generator, err := NewGenerator(config, testLogger)
	if err != nil {
		t.Fatalf("error creating generator: %v", err)
	}
	generator.now = func() time.Time { return fixedTime }
	return generator
}

func seededConfig(seed string, nodeCount int) Config {
	config := DefaultConfig()
	config.NodeCount = nodeCount
	config.Seed = &seed
	return config
}

func weights(result *Result) []uint {
	account := result.Summary.GenesisAccount
	w := make([]uint, len(account.Keys))
	for i, key := range account.Keys {
		w[i] = key.Weight
	}
	return w
}

func TestSingleNodeHasNoGenesisAccount(t *testing.T) {
	for _, threshold := range []uint{1, 50, 100} {
		config := seededConfig("abc", 1)
		config.Threshold = threshold

		result, err := testGenerator(t, config).Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Summary.GenesisAccount != nil {
			t.Fatalf("expected no genesis account for a single node but got '%v'", result.Summary.GenesisAccount)
		}
		if len(result.Summary.Nodes) != 1 {
			t.Fatalf("expected 1 node but got %v", len(result.Summary.Nodes))
		}
	}
}

func TestThreeNodeGenesisAccount(t *testing.T) {
	config := seededConfig("abc", 3)
	config.Threshold = 80
	config.MaxParticipants = 3

	result, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedWeights := []uint{33, 33, 34}
	if !reflect.DeepEqual(weights(result), expectedWeights) {
		t.Fatalf("expected weights '%v' but got '%v'", expectedWeights, weights(result))
	}
	if result.Summary.GenesisAccount.Threshold != 80 {
		t.Fatalf("expected threshold 80 but got '%v'", result.Summary.GenesisAccount.Threshold)
	}
	if result.Summary.GenesisAccount.Address != result.Nodes[0].KeyPair.Address {
		t.Fatalf("expected genesis address '%v' but got '%v'",
			result.Nodes[0].KeyPair.Address, result.Summary.GenesisAccount.Address)
	}
}

func TestGenesisUsesFirstParticipants(t *testing.T) {
	config := seededConfig("abc", 5)
	config.MaxParticipants = 3

	result, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account := result.Summary.GenesisAccount
	if len(account.Keys) != 3 {
		t.Fatalf("expected 3 genesis keys but got %v", len(account.Keys))
	}
	for i, key := range account.Keys {
		if key.Key != result.Nodes[i].KeyPair.PublicKey {
			t.Fatalf("expected genesis key %v to be node%v's public key", i, i)
		}
	}
	if !reflect.DeepEqual(weights(result), []uint{33, 33, 34}) {
		t.Fatalf("expected weights '[33 33 34]' but got '%v'", weights(result))
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	config := seededConfig("abc", 2)

	result1, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result2, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range result1.Nodes {
		if result1.Nodes[i].KeyPair != result2.Nodes[i].KeyPair {
			t.Fatalf("node %v key pairs differ between runs", i)
		}
	}
	if !reflect.DeepEqual(result1.Summary.GenesisAccount, result2.Summary.GenesisAccount) {
		t.Fatalf("genesis accounts differ between runs: '%v' != '%v'",
			result1.Summary.GenesisAccount, result2.Summary.GenesisAccount)
	}
	if !reflect.DeepEqual(result1.Summary, result2.Summary) {
		t.Fatal("summaries differ between runs")
	}
}

func TestRunSummary(t *testing.T) {
	config := seededConfig("a seed long enough for the key generator to use it", 4)
	config.NetworkID = "testnet"
	config.KeyType = crypto.Ether
	config.Threshold = 67

	result, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := result.Summary
	if summary.NetworkID != "testnet" || summary.NodeCount != 4 || summary.Threshold != 67 ||
		summary.KeyType != crypto.Ether || !summary.GeneratedAt.Equal(fixedTime) {
		t.Fatalf("unexpected summary '%v'", summary)
	}

	for i, node := range summary.Nodes {
		if node.NodeID != i {
			t.Fatalf("expected node id %v but got %v", i, node.NodeID)
		}
		if node.Address != NodeAddress("testnet", i) {
			t.Fatalf("expected node address '%v' but got '%v'", NodeAddress("testnet", i), node.Address)
		}
		if node.PublicKey != result.Nodes[i].KeyPair.PublicKey {
			t.Fatalf("summary public key for node %v does not match generated key", i)
		}
		if node.Type != crypto.Ether {
			t.Fatalf("expected type '%v' but got '%v'", crypto.Ether, node.Type)
		}
	}

	if result.IsFallback() {
		t.Fatal("expected keys from the generator, not fallback")
	}
}

func TestConcurrentRunKeepsOrder(t *testing.T) {
	config := seededConfig("abc", 20)
	sequential, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	config.Workers = 4
	concurrent, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(sequential.Summary, concurrent.Summary) {
		t.Fatal("concurrent run does not match sequential run")
	}
}

type errorProvider struct {
	failAt int
}

func (p *errorProvider) Produce(index int) (crypto.KeyPair, error) {
	if index == p.failAt {
		return crypto.KeyPair{}, crypto.ErrInvalidDerivationInput
	}
	return crypto.DeriveKeyPair(nil, index, crypto.BTC), nil
}

func TestRunFailsOnNodeError(t *testing.T) {
	for _, workers := range []int{1, 3} {
		config := seededConfig("abc", 5)
		config.Workers = workers
		generator := testGenerator(t, config).WithProvider(&errorProvider{failAt: 3})

		result, err := generator.Run(context.Background())
		if result != nil {
			t.Fatal("expected no result from a failed run")
		}

		var nodeErr *NodeError
		if !errors.As(err, &nodeErr) {
			t.Fatalf("expected NodeError but got '%v'", err)
		}
		if nodeErr.Index != 3 {
			t.Fatalf("expected failing node index 3 but got %v", nodeErr.Index)
		}
		if !errors.Is(err, crypto.ErrInvalidDerivationInput) {
			t.Fatalf("expected '%v' but got '%v'", crypto.ErrInvalidDerivationInput, err)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testGenerator(t, seededConfig("abc", 3)).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected '%v' but got '%v'", context.Canceled, err)
	}
}

func TestAssembleCopiesInputs(t *testing.T) {
	nodes := []NodeSummary{{NodeID: 0, Address: "mitum0sas", PublicKey: "pub0", Type: crypto.BTC}}
	req := Request{NetworkID: "mitum", NodeCount: 1, Threshold: 100, KeyType: crypto.BTC}

	summary := Assemble(nodes, nil, req, fixedTime)
	nodes[0].PublicKey = "changed"

	if summary.Nodes[0].PublicKey != "pub0" {
		t.Fatal("summary changed after modifying input nodes")
	}
	if summary.GenesisAccount != nil {
		t.Fatal("expected no genesis account")
	}

	empty := Assemble(nil, nil, req, fixedTime)
	if empty.Nodes == nil {
		t.Fatal("expected empty, non nil node list")
	}
}
