/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt persists workbook documents in a BoltDB file, one
// bucket of documents keyed by workbook name.
package bolt

import (
	"context"
	"errors"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

var NotFound = errors.New("workbook not found")

var workbooks = []byte("workbooks")

// Storage is a type of persistence.
type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

// NewStorage takes in a filename and returns a Storage object.
func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db

	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(workbooks)
		return err
	})
}

func (s *Storage) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	if s.Debug {
		log.Printf("BoltDB "+format, args...)
	}
}

// SaveDocument writes an exported document (JSON) under the workbook's
// name.
func (s *Storage) SaveDocument(ctx context.Context, name string, doc []byte) error {
	if s == nil {
		return nil
	}
	s.logf("SaveDocument %s (%d bytes)", name, len(doc))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(workbooks).Put([]byte(name), doc)
	})
}

// LoadDocument reads a document back; NotFound if the name was never
// saved.
func (s *Storage) LoadDocument(ctx context.Context, name string) ([]byte, error) {
	if s == nil {
		return nil, NotFound
	}
	var doc []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(workbooks).Get([]byte(name))
		if bs == nil {
			return NotFound
		}
		doc = make([]byte, len(bs))
		copy(doc, bs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("LoadDocument %s (%d bytes)", name, len(doc))
	return doc, nil
}

// RemoveDocument deletes a saved document.
func (s *Storage) RemoveDocument(ctx context.Context, name string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(workbooks).Delete([]byte(name))
	})
}

// ListDocuments returns the saved workbook names.
func (s *Storage) ListDocuments(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(workbooks).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
