package keygen

import (
	"context"
	"encoding/json"
	"testing"
)

func TestBuildInventory(t *testing.T) {
	config := seededConfig("abc", 5)
	config.NetworkID = "testnet"
	config.Threshold = 67

	result, err := testGenerator(t, config).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inventory := BuildInventory(result.Summary)
	group, ok := inventory.Groups[InventoryGroup]
	if !ok {
		t.Fatalf("expected group '%v'", InventoryGroup)
	}
	if len(group.Hosts) != 5 || group.Hosts[0] != "node0" || group.Hosts[4] != "node4" {
		t.Fatalf("unexpected hosts '%v'", group.Hosts)
	}
	if group.Vars["mitum_genesis_address"] != result.Summary.GenesisAccount.Address {
		t.Fatalf("unexpected genesis address var '%v'", group.Vars["mitum_genesis_address"])
	}

	for i := 0; i < 5; i++ {
		vars, ok := inventory.Host(NodeName(i))
		if !ok {
			t.Fatalf("expected host vars for node%v", i)
		}
		if vars.Address != NodeAddress("testnet", i) {
			t.Fatalf("expected address '%v' but got '%v'", NodeAddress("testnet", i), vars.Address)
		}
		// only the first 3 nodes sign for the genesis account
		if vars.GenesisParticipant != (i < 3) {
			t.Fatalf("unexpected genesis participant flag for node%v: %v", i, vars.GenesisParticipant)
		}
	}

	if _, ok := inventory.Host("node5"); ok {
		t.Fatal("expected no host vars for unknown host")
	}
}

func TestInventoryJSON(t *testing.T) {
	result, err := testGenerator(t, seededConfig("abc", 1)).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoded, err := json.Marshal(BuildInventory(result.Summary))
	if err != nil {
		t.Fatalf("error encoding inventory: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("error decoding inventory: %v", err)
	}
	if _, ok := decoded[InventoryGroup]; !ok {
		t.Fatalf("expected top level '%v' group in '%s'", InventoryGroup, encoded)
	}

	var meta Meta
	if err := json.Unmarshal(decoded["_meta"], &meta); err != nil {
		t.Fatalf("error decoding _meta: %v", err)
	}
	if meta.HostVars["node0"].GenesisParticipant {
		t.Fatal("single node run has no genesis participants")
	}

	var group Group
	json.Unmarshal(decoded[InventoryGroup], &group)
	if _, ok := group.Vars["mitum_genesis_address"]; ok {
		t.Fatal("expected no genesis address var for a single node")
	}

	empty, _ := json.Marshal(EmptyInventory())
	if string(empty) != `{"_meta":{"hostvars":{}}}` {
		t.Fatalf("unexpected empty inventory '%s'", empty)
	}
}
