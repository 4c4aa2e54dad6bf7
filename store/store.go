// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists continuous aggregate catalog records in a bolt
// database so they survive a restart of the engine.
package store

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"sync"

	"github.com/boltdb/bolt"
	"gopkg.in/src-d/go-cagg.v0/sql/plan"
	"gopkg.in/src-d/go-errors.v1"
)

const (
	// FileName is the name of the database file inside the store directory.
	FileName = "continuous_agg.db"

	recordsBucket = "continuous_agg"
)

var (
	// ErrRecordNotFound is returned when no record exists for a view.
	ErrRecordNotFound = errors.NewKind("continuous aggregate %s.%s not found")
	// ErrStoreClosed is returned when using a closed store.
	ErrStoreClosed = errors.NewKind("record store is closed")
	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = errors.NewKind("corrupt continuous aggregate record %q")
)

// Store keeps continuous aggregate records keyed by user view. It is safe
// for concurrent use.
type Store struct {
	dir string

	mut sync.RWMutex
	db  *bolt.DB
}

// Open opens, creating it if needed, the store in the given directory.
func Open(dir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dir, FileName), 0640, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{dir: dir, db: db}, nil
}

// Path returns the path of the database file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Close releases the database file.
func (s *Store) Close() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) query(fn func(db *bolt.DB) error) error {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if s.db == nil {
		return ErrStoreClosed.New()
	}
	return fn(s.db)
}

func recordKey(schema, name string) []byte {
	return []byte(schema + "." + name)
}

// Put stores the record, replacing any record of the same user view.
func (s *Store) Put(rec *plan.ContinuousAggRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}

	return s.query(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(recordsBucket))
			return b.Put(recordKey(rec.UserViewSchema, rec.UserViewName), buf.Bytes())
		})
	})
}

// Get returns the record of the given user view.
func (s *Store) Get(schema, name string) (*plan.ContinuousAggRecord, error) {
	var rec *plan.ContinuousAggRecord
	err := s.query(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			key := recordKey(schema, name)
			val := tx.Bucket([]byte(recordsBucket)).Get(key)
			if val == nil {
				return ErrRecordNotFound.New(schema, name)
			}

			var err error
			rec, err = decode(key, val)
			return err
		})
	})
	return rec, err
}

// List returns every record ordered by qualified view name.
func (s *Store) List() ([]*plan.ContinuousAggRecord, error) {
	var recs []*plan.ContinuousAggRecord
	err := s.query(func(db *bolt.DB) error {
		return db.View(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(recordsBucket)).ForEach(func(k, v []byte) error {
				rec, err := decode(k, v)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
				return nil
			})
		})
	})
	return recs, err
}

// Delete removes the record of the given user view.
func (s *Store) Delete(schema, name string) error {
	return s.query(func(db *bolt.DB) error {
		return db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(recordsBucket))
			key := recordKey(schema, name)
			if b.Get(key) == nil {
				return ErrRecordNotFound.New(schema, name)
			}
			return b.Delete(key)
		})
	})
}

func decode(key, val []byte) (*plan.ContinuousAggRecord, error) {
	var rec plan.ContinuousAggRecord
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&rec); err != nil {
		return nil, ErrCorruptRecord.Wrap(err, string(key))
	}
	return &rec, nil
}
