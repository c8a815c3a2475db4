package keygen

import (
	"slices"
	"strconv"
	"time"

	"github.com/mitum-deploy/keygen/crypto"
	"github.com/mitum-deploy/keygen/genesis"
)

const nodeAddressSuffix = "sas"

// NodeName is the name of the directory and inventory host for a node.
func NodeName(index int) string {
	return "node" + strconv.Itoa(index)
}

// NodeAddress is the mitum node address for the node at index.
func NodeAddress(networkID string, index int) string {
	return networkID + strconv.Itoa(index) + nodeAddressSuffix
}

// Request holds the parameters of a generation run that are
// reported back in its summary.
type Request struct {
	NetworkID string
	NodeCount int
	Threshold uint
	KeyType   crypto.KeyType
}

// NodeRecord is everything generated for a single node,
// including its private key.
type NodeRecord struct {
	NodeID  int            `json:"node_id"`
	Address string         `json:"address"`
	KeyPair crypto.KeyPair `json:"-"`
}

// Summary returns the shareable view of the node, without the private key.
func (n NodeRecord) Summary() NodeSummary {
	return NodeSummary{
		NodeID:    n.NodeID,
		Address:   n.Address,
		PublicKey: n.KeyPair.PublicKey,
		Type:      n.KeyPair.Type,
	}
}

type NodeSummary struct {
	NodeID    int            `json:"node_id" yaml:"node_id" cbor:"node_id"`
	Address   string         `json:"address" yaml:"address" cbor:"address"`
	PublicKey string         `json:"public_key" yaml:"public_key" cbor:"public_key"`
	Type      crypto.KeyType `json:"type" yaml:"type" cbor:"type"`
}

type GenerationSummary struct {
	NetworkID      string           `json:"network_id" yaml:"network_id"`
	GeneratedAt    time.Time        `json:"generated_at" yaml:"generated_at"`
	NodeCount      int              `json:"node_count" yaml:"node_count"`
	Threshold      uint             `json:"threshold" yaml:"threshold"`
	KeyType        crypto.KeyType   `json:"key_type" yaml:"key_type"`
	Nodes          []NodeSummary    `json:"nodes" yaml:"nodes"`
	GenesisAccount *genesis.Account `json:"genesis_account,omitempty" yaml:"genesis_account,omitempty"`
}

// Result is the outcome of a generation run.
type Result struct {
	Nodes   []NodeRecord
	Summary GenerationSummary
}

// Assemble builds the summary for a run. It does not keep references to
// nodes or account, so later changes to them do not affect the summary.
func Assemble(nodes []NodeSummary, account *genesis.Account, req Request, generatedAt time.Time) GenerationSummary {
	summary := GenerationSummary{
		NetworkID:   req.NetworkID,
		GeneratedAt: generatedAt.UTC(),
		NodeCount:   req.NodeCount,
		Threshold:   req.Threshold,
		KeyType:     req.KeyType,
		Nodes:       slices.Clone(nodes),
	}
	if summary.Nodes == nil {
		summary.Nodes = []NodeSummary{}
	}

	if account != nil {
		accountCopy := *account
		accountCopy.Keys = slices.Clone(account.Keys)
		summary.GenesisAccount = &accountCopy
	}

	return summary
}
