package keygen

import (
	"context"
	"reflect"
	"testing"

	"github.com/mitum-deploy/keygen/keygen/storage"
)

func TestRecordRun(t *testing.T) {
	result, err := testGenerator(t, seededConfig("abc", 3)).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, backend := range []RegistryBackend{BoltRegistry, SQLiteRegistry} {
		db, err := OpenRegistry(t.TempDir(), backend)
		if err != nil {
			t.Fatalf("error opening %v registry: %v", backend, err)
		}

		run, err := RecordRun(db, result, "./keys")
		if err != nil {
			t.Fatalf("error recording run: %v", err)
		}
		if !run.Fallback {
			t.Fatal("expected run with short seed to be marked as fallback")
		}

		stored, err := db.GetRun(run.Id)
		if err != nil {
			t.Fatalf("error getting run: %v", err)
		}
		summary, err := DecodeSummary(stored)
		if err != nil {
			t.Fatalf("error decoding summary: %v", err)
		}
		if !reflect.DeepEqual(summary.GenesisAccount, result.Summary.GenesisAccount) {
			t.Fatalf("expected genesis account '%v' but got '%v'",
				result.Summary.GenesisAccount, summary.GenesisAccount)
		}
		if !summary.GeneratedAt.Equal(fixedTime) || len(summary.Nodes) != 3 {
			t.Fatalf("unexpected stored summary '%v'", summary)
		}

		db.Close()
	}
}

func TestOpenRegistryInvalidBackend(t *testing.T) {
	if _, err := OpenRegistry(t.TempDir(), "postgres"); err == nil {
		t.Fatal("expected error for invalid backend")
	}
}

func TestDecodeSummaryInvalid(t *testing.T) {
	tests := []storage.Run{
		{Id: "bad-json", Summary: []byte("not json")},
		{Id: "bad-weights", Summary: []byte(`{"genesis_account":{"address":"x","threshold":50,` +
			`"keys":[{"key":"a","weight":50},{"key":"b","weight":40}]}}`)},
	}

	for _, run := range tests {
		if _, err := DecodeSummary(run); err == nil {
			t.Fatalf("expected error decoding run '%v'", run.Id)
		}
	}

	_, err := DecodeSummary(storage.Run{Id: "ok", Summary: []byte(`{"network_id":"mitum","nodes":[]}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
