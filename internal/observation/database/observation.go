package database

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/observation/model"
)

var bucket = []byte("observation")

type FilterFn func(o model.Observation) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

// DB keeps observations in one bucket keyed by big-endian id, so cursors
// walk them in id order.
type DB struct {
	sDB *database.DB
}

func key(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

// AppendMany stores observations, overwriting those with the same id.
func (db *DB) AppendMany(_ context.Context, observations []model.Observation) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, o := range observations {
			value, err := o.Encode()
			if err != nil {
				return err
			}
			if err := b.Put(key(o.ID), value); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

func (db *DB) Delete(_ context.Context, ids ...uint64) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete(key(id)); err != nil {
				return fmt.Errorf("unable delete %d: %w", id, err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// FindAll returns the observations accepted by filter (all when nil) in id order.
func (db *DB) FindAll(_ context.Context, filter FilterFn) ([]model.Observation, error) {
	var list []model.Observation
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			o, err := model.Decode(v)
			if err != nil {
				return fmt.Errorf("key %x: %w", k, err)
			}
			if filter == nil || filter(o) {
				list = append(list, o)
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) Count(_ context.Context) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		length = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}

	return length, nil
}
