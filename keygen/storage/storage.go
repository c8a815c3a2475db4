package storage

import "errors"

var ErrRunNotFound = errors.New("run not found")

// DB records the generation runs made against an output directory.
// It never holds private keys.
type DB interface {
	SaveRun(Run) error
	GetRun(id string) (Run, error)
	GetRuns() ([]Run, error)
	LatestRun() (Run, error)

	Close() error
}

type Run struct {
	Id        string `cbor:"id"`
	CreatedAt int64  `cbor:"created_at"`
	NetworkID string `cbor:"network_id"`
	NodeCount int    `cbor:"node_count"`
	KeyType   string `cbor:"key_type"`
	OutputDir string `cbor:"output_dir"`
	Fallback  bool   `cbor:"fallback"`
	// json encoded redacted summary
	Summary []byte `cbor:"summary"`
}
