package keygen

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mitum-deploy/keygen/crypto"
	"github.com/mitum-deploy/keygen/genesis"
)

type LogLevel int

const (
	Info LogLevel = iota
	Debug
	Warn
	Disable
)

func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "warn", "warning":
		return Warn, nil
	case "disable", "off", "none":
		return Disable, nil
	}
	return Info, fmt.Errorf("invalid log level '%v'", s)
}

type RegistryBackend string

const (
	BoltRegistry   RegistryBackend = "bolt"
	SQLiteRegistry RegistryBackend = "sqlite"
)

type Config struct {
	NetworkID string
	NodeCount int
	// Threshold is the signing weight, in percent, required by the
	// genesis account.
	Threshold uint
	OutputDir string
	KeyType   crypto.KeyType

	// Seed makes key generation deterministic. nil means random entropy.
	Seed *string
	// Mnemonic, if set, derives node keys along BIP-44 paths.
	Mnemonic string

	MaxParticipants int
	DisableSDK      bool
	// Workers > 1 generates nodes concurrently.
	Workers int

	RegistryPath    string
	RegistryBackend RegistryBackend

	LogLevel LogLevel
}

func DefaultConfig() Config {
	return Config{
		NetworkID:       "mitum",
		NodeCount:       1,
		Threshold:       100,
		OutputDir:       "./keys",
		KeyType:         crypto.BTC,
		MaxParticipants: genesis.DefaultMaxParticipants,
		Workers:         1,
		RegistryBackend: BoltRegistry,
		LogLevel:        Info,
	}
}

func (c Config) Validate() error {
	if len(c.NetworkID) == 0 {
		return errors.New("network-id cannot be empty")
	}
	if c.NodeCount < 1 {
		return errors.New("node-count must be at least 1")
	}
	if c.Threshold < 1 || c.Threshold > genesis.TotalWeight {
		return genesis.ErrInvalidThreshold
	}
	if !c.KeyType.Valid() {
		return fmt.Errorf("%w '%v': must be btc, ether or stellar", crypto.ErrInvalidKeyType, c.KeyType)
	}
	if c.MaxParticipants < 1 {
		return errors.New("max-participants must be at least 1")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if len(c.RegistryPath) > 0 {
		switch c.RegistryBackend {
		case BoltRegistry, SQLiteRegistry:
		default:
			return fmt.Errorf("invalid registry backend '%v'", c.RegistryBackend)
		}
	}
	return nil
}

func (c Config) Request() Request {
	return Request{
		NetworkID: c.NetworkID,
		NodeCount: c.NodeCount,
		Threshold: c.Threshold,
		KeyType:   c.KeyType,
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func NewLogger(w io.Writer, level LogLevel) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case Debug:
		slogLevel = slog.LevelDebug
	case Warn:
		slogLevel = slog.LevelWarn
	case Disable:
		w = io.Discard
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))
}
