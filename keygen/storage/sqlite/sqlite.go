package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mitum-deploy/keygen/keygen/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteDB struct {
	db *sql.DB
}

func InitSQLite(path string) (*SQLiteDB, error) {
	dbpath := filepath.Join(path, "registry.sqlite.db")
	db, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, err
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("error running migrations: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteDB{db: db}, nil
}

func (sqlite *SQLiteDB) Close() error {
	return sqlite.db.Close()
}

func (sqlite *SQLiteDB) SaveRun(run storage.Run) error {
	if len(run.Id) == 0 {
		return errors.New("run id cannot be empty")
	}

	_, err := sqlite.db.Exec(`
		INSERT INTO runs (id, created_at, network_id, node_count, key_type, output_dir, fallback, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Id, run.CreatedAt, run.NetworkID, run.NodeCount, run.KeyType, run.OutputDir, run.Fallback, run.Summary)

	return err
}

func (sqlite *SQLiteDB) GetRun(id string) (storage.Run, error) {
	row := sqlite.db.QueryRow(`
		SELECT id, created_at, network_id, node_count, key_type, output_dir, fallback, summary
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Run{}, storage.ErrRunNotFound
		}
		return storage.Run{}, err
	}
	return run, nil
}

func (sqlite *SQLiteDB) GetRuns() ([]storage.Run, error) {
	runs := []storage.Run{}

	rows, err := sqlite.db.Query(`
		SELECT id, created_at, network_id, node_count, key_type, output_dir, fallback, summary
		FROM runs ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (sqlite *SQLiteDB) LatestRun() (storage.Run, error) {
	row := sqlite.db.QueryRow(`
		SELECT id, created_at, network_id, node_count, key_type, output_dir, fallback, summary
		FROM runs ORDER BY created_at DESC, id DESC LIMIT 1
	`)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Run{}, storage.ErrRunNotFound
		}
		return storage.Run{}, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (storage.Run, error) {
	var run storage.Run
	err := row.Scan(
		&run.Id,
		&run.CreatedAt,
		&run.NetworkID,
		&run.NodeCount,
		&run.KeyType,
		&run.OutputDir,
		&run.Fallback,
		&run.Summary,
	)
	return run, err
}
