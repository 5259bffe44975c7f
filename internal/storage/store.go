// Package storage persists the two JSON documents the service owns: the
// metadata cache document and the user-data document. Writes are atomic
// (temp file + rename) so a crash never leaves truncated JSON behind;
// malformed or missing documents read back as empty state.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	cacheFile    = "schoology_cache.json"
	userDataFile = "user_data.json"
)

type Store struct {
	dir string
	log *logrus.Entry

	cacheMu sync.Mutex
	userMu  sync.Mutex
}

func New(dir string, log *logrus.Entry) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// LoadCache reads the cache document. A missing or unparseable file is
// returned as an empty document rather than an error.
func (s *Store) LoadCache() CacheDocument {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	var doc CacheDocument
	s.readJSON(cacheFile, &doc)
	doc.init()
	return doc
}

// UpdateCache applies fn to the current cache document under the store
// lock and persists the result atomically.
func (s *Store) UpdateCache(fn func(*CacheDocument)) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	var doc CacheDocument
	s.readJSON(cacheFile, &doc)
	doc.init()
	fn(&doc)
	return s.writeJSON(cacheFile, &doc)
}

// LoadUserData reads the user-data document (manual marks + custom
// events), treating missing or corrupt state as empty.
func (s *Store) LoadUserData() UserData {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	var d UserData
	s.readJSON(userDataFile, &d)
	d.init()
	return d
}

// UpdateUserData applies fn to the user-data document under the store
// lock and persists the result atomically.
func (s *Store) UpdateUserData(fn func(*UserData)) error {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	var d UserData
	s.readJSON(userDataFile, &d)
	d.init()
	fn(&d)
	return s.writeJSON(userDataFile, &d)
}

func (s *Store) readJSON(name string, v any) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && s.log != nil {
			s.log.WithError(err).Warnf("read %s failed, treating as empty", name)
		}
		return
	}
	if err := json.Unmarshal(data, v); err != nil && s.log != nil {
		s.log.WithError(err).Warnf("%s is malformed, treating as empty", name)
	}
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
