package keygen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitum-deploy/keygen/crypto"
	"github.com/mitum-deploy/keygen/genesis"
	"golang.org/x/sync/errgroup"
)

// NodeError is a failure generating keys for a single node.
// It aborts the whole run.
type NodeError struct {
	Index int
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %v: %v", e.Index, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

type Generator struct {
	config   Config
	provider Provider
	logger   *slog.Logger

	// now is replaced in tests
	now func() time.Time
}

func NewGenerator(config Config, logger *slog.Logger) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		config:   config,
		provider: NewProvider(config, logger),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithProvider replaces the provider used to produce node keys.
func (g *Generator) WithProvider(provider Provider) *Generator {
	g.provider = provider
	return g
}

// Run generates keys for every node and, for more than one node,
// the genesis account. Either all nodes succeed or an error is returned.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	g.logger.Info("generating key pairs",
		slog.String("network", g.config.NetworkID),
		slog.Int("nodes", g.config.NodeCount),
		slog.String("type", g.config.KeyType.String()))

	var nodes []NodeRecord
	var err error
	if g.config.Workers > 1 {
		nodes, err = g.generateConcurrent(ctx)
	} else {
		nodes, err = g.generateSequential(ctx)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]NodeSummary, len(nodes))
	for i, node := range nodes {
		summaries[i] = node.Summary()
	}

	var account *genesis.Account
	if g.config.NodeCount > 1 {
		account = g.genesisAccount(nodes)
	}

	summary := Assemble(summaries, account, g.config.Request(), g.now())
	return &Result{Nodes: nodes, Summary: summary}, nil
}

func (g *Generator) generateSequential(ctx context.Context) ([]NodeRecord, error) {
	nodes := make([]NodeRecord, g.config.NodeCount)
	for i := 0; i < g.config.NodeCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, err := g.generateNode(i)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}
	return nodes, nil
}

// each worker writes only its own slot so nodes stay in index order
func (g *Generator) generateConcurrent(ctx context.Context) ([]NodeRecord, error) {
	nodes := make([]NodeRecord, g.config.NodeCount)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(g.config.Workers)
	for i := 0; i < g.config.NodeCount; i++ {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			node, err := g.generateNode(i)
			if err != nil {
				return err
			}
			nodes[i] = node
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (g *Generator) generateNode(index int) (NodeRecord, error) {
	keyPair, err := g.provider.Produce(index)
	if err != nil {
		return NodeRecord{}, &NodeError{Index: index, Err: err}
	}
	if err := keyPair.WellFormed(g.config.KeyType); err != nil {
		return NodeRecord{}, &NodeError{Index: index, Err: err}
	}

	g.logger.Info("generated keys", slog.String("node", NodeName(index)))
	return NodeRecord{
		NodeID:  index,
		Address: NodeAddress(g.config.NetworkID, index),
		KeyPair: keyPair,
	}, nil
}

func (g *Generator) genesisAccount(nodes []NodeRecord) *genesis.Account {
	publicKeys := make([]string, len(nodes))
	for i, node := range nodes {
		publicKeys[i] = node.KeyPair.PublicKey
	}

	var representative string
	if len(nodes) > 0 {
		representative = nodes[0].KeyPair.Address
	}

	account := genesis.Aggregate(publicKeys, g.config.Threshold, g.config.NetworkID,
		g.config.MaxParticipants, representative)
	if account == nil {
		return nil
	}

	g.logger.Info("generated genesis account",
		slog.String("address", account.Address),
		slog.Int("keys", len(account.Keys)),
		slog.Uint64("threshold", uint64(account.Threshold)))
	g.logger.Info("genesis address is the first participant's account address, not a derived multisig address")
	return account
}

// Generate runs a Generator for config with the default provider chain.
func Generate(ctx context.Context, config Config, logger *slog.Logger) (*Result, error) {
	generator, err := NewGenerator(config, logger)
	if err != nil {
		return nil, err
	}
	return generator.Run(ctx)
}

// IsFallback reports whether any node in the result fell back to
// the placeholder derivation.
func (r *Result) IsFallback() bool {
	for _, node := range r.Nodes {
		if crypto.IsFallback(node.KeyPair) {
			return true
		}
	}
	return false
}
