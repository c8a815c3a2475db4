package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

const runsBucket = "runs"

type BoltDB struct {
	bolt *bolt.DB
}

func InitBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(filepath.Join(path, "registry.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("error setting up bolt: %v", err)
	}

	boltdb := &BoltDB{bolt: db}
	if err := boltdb.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting up bolt: %v", err)
	}
	return boltdb, nil
}

func (db *BoltDB) initBuckets() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}

// run ids are time ordered so keys sort by creation time
func (db *BoltDB) SaveRun(run Run) error {
	if len(run.Id) == 0 {
		return errors.New("run id cannot be empty")
	}

	encodedRun, err := cbor.Marshal(run)
	if err != nil {
		return fmt.Errorf("invalid run: %v", err)
	}

	return db.bolt.Update(func(tx *bolt.Tx) error {
		runsb := tx.Bucket([]byte(runsBucket))
		return runsb.Put([]byte(run.Id), encodedRun)
	})
}

func (db *BoltDB) GetRun(id string) (Run, error) {
	var run Run
	err := db.bolt.View(func(tx *bolt.Tx) error {
		runsb := tx.Bucket([]byte(runsBucket))
		value := runsb.Get([]byte(id))
		if value == nil {
			return ErrRunNotFound
		}
		return cbor.Unmarshal(value, &run)
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (db *BoltDB) GetRuns() ([]Run, error) {
	runs := []Run{}

	err := db.bolt.View(func(tx *bolt.Tx) error {
		runsb := tx.Bucket([]byte(runsBucket))

		c := runsb.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var run Run
			if err := cbor.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("error getting runs: %v", err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (db *BoltDB) LatestRun() (Run, error) {
	var run Run
	err := db.bolt.View(func(tx *bolt.Tx) error {
		runsb := tx.Bucket([]byte(runsBucket))
		k, v := runsb.Cursor().Last()
		if k == nil {
			return ErrRunNotFound
		}
		return cbor.Unmarshal(v, &run)
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
