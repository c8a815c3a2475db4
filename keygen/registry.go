package keygen

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mitum-deploy/keygen/keygen/storage"
	"github.com/mitum-deploy/keygen/keygen/storage/sqlite"
)

func OpenRegistry(path string, backend RegistryBackend) (storage.DB, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	var db storage.DB
	var err error
	switch backend {
	case SQLiteRegistry:
		db, err = sqlite.InitSQLite(path)
	case BoltRegistry, "":
		db, err = storage.InitBolt(path)
	default:
		return nil, fmt.Errorf("invalid registry backend '%v'", backend)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRun converts a result into a registry entry. Only the redacted
// summary is stored.
func NewRun(result *Result, outputDir string) (storage.Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return storage.Run{}, err
	}

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return storage.Run{}, fmt.Errorf("error encoding summary: %v", err)
	}

	return storage.Run{
		Id:        id.String(),
		CreatedAt: result.Summary.GeneratedAt.Unix(),
		NetworkID: result.Summary.NetworkID,
		NodeCount: result.Summary.NodeCount,
		KeyType:   result.Summary.KeyType.String(),
		OutputDir: outputDir,
		Fallback:  result.IsFallback(),
		Summary:   summary,
	}, nil
}

func RecordRun(db storage.DB, result *Result, outputDir string) (storage.Run, error) {
	run, err := NewRun(result, outputDir)
	if err != nil {
		return storage.Run{}, err
	}
	if err := db.SaveRun(run); err != nil {
		return storage.Run{}, fmt.Errorf("error saving run: %v", err)
	}
	return run, nil
}

func DecodeSummary(run storage.Run) (GenerationSummary, error) {
	var summary GenerationSummary
	if err := json.Unmarshal(run.Summary, &summary); err != nil {
		return GenerationSummary{}, fmt.Errorf("invalid summary for run '%v': %v", run.Id, err)
	}
	if summary.GenesisAccount != nil {
		if err := summary.GenesisAccount.Validate(); err != nil {
			return GenerationSummary{}, fmt.Errorf("invalid genesis account for run '%v': %v", run.Id, err)
		}
	}
	return summary, nil
}
