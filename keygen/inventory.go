package keygen

import (
	"encoding/json"
	"slices"
)

const InventoryGroup = "mitum_nodes"

// Inventory is an Ansible dynamic inventory for a generated node set.
type Inventory struct {
	Groups map[string]Group `json:"-"`
	Meta   Meta             `json:"_meta"`
}

type Group struct {
	Hosts []string       `json:"hosts"`
	Vars  map[string]any `json:"vars"`
}

type Meta struct {
	HostVars map[string]HostVars `json:"hostvars"`
}

type HostVars struct {
	NodeID             int    `json:"mitum_node_id"`
	Address            string `json:"mitum_node_address"`
	PublicKey          string `json:"mitum_public_key"`
	KeyType            string `json:"mitum_key_type"`
	GenesisParticipant bool   `json:"mitum_genesis_participant"`
}

func EmptyInventory() Inventory {
	return Inventory{
		Groups: map[string]Group{},
		Meta:   Meta{HostVars: map[string]HostVars{}},
	}
}

func BuildInventory(summary GenerationSummary) Inventory {
	inventory := EmptyInventory()

	var genesisKeys []string
	vars := map[string]any{
		"mitum_network_id": summary.NetworkID,
		"mitum_key_type":   summary.KeyType.String(),
		"mitum_threshold":  summary.Threshold,
	}
	if summary.GenesisAccount != nil {
		genesisKeys = summary.GenesisAccount.PublicKeys()
		vars["mitum_genesis_address"] = summary.GenesisAccount.Address
	}

	hosts := make([]string, len(summary.Nodes))
	for i, node := range summary.Nodes {
		name := NodeName(node.NodeID)
		hosts[i] = name
		inventory.Meta.HostVars[name] = HostVars{
			NodeID:             node.NodeID,
			Address:            node.Address,
			PublicKey:          node.PublicKey,
			KeyType:            node.Type.String(),
			GenesisParticipant: slices.Contains(genesisKeys, node.PublicKey),
		}
	}

	inventory.Groups[InventoryGroup] = Group{Hosts: hosts, Vars: vars}
	return inventory
}

// Host returns the variables for a single host, as returned by
// an inventory script called with --host.
func (inv Inventory) Host(name string) (HostVars, bool) {
	vars, ok := inv.Meta.HostVars[name]
	return vars, ok
}

// MarshalJSON flattens the groups next to _meta.
func (inv Inventory) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(inv.Groups)+1)
	for name, group := range inv.Groups {
		out[name] = group
	}
	out["_meta"] = inv.Meta
	return json.Marshal(out)
}
