// Package store provides Badger DB-backed persistence for projects and
// editor settings. It is the durable side of the workspace: the engine
// writes every mutation through it and treats it as the source of truth
// across restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// Key prefixes for different data types
const (
	prefixProject = "p:" // Full project trees
	prefixMeta    = "m:" // Metadata (schema version)
	settingsKey   = "s:settings"
)

// ErrNotFound reports a missing project.
var ErrNotFound = errors.New("project not found")

// Store is workspace storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(id string) (*types.Project, error) {
	var project types.Project

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixProject + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &project)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", id, err)
	}

	return &project, nil
}

// SaveProject stores the full project tree. Each write carries the
// complete tree, so a later write always supersedes an earlier one.
func (s *Store) SaveProject(p *types.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding project %s: %w", p.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixProject+p.ID), data)
	})
	if err != nil {
		return fmt.Errorf("writing project %s: %w", p.ID, err)
	}
	return nil
}

// ListProjectSummaries returns summaries of all stored projects, most
// recently modified first.
func (s *Store) ListProjectSummaries() ([]types.ProjectSummary, error) {
	var summaries []types.ProjectSummary

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixProject)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var project types.Project
				if err := json.Unmarshal(val, &project); err != nil {
					return err
				}
				summaries = append(summaries, types.ProjectSummary{
					ID:           project.ID,
					Name:         project.Name,
					FileCount:    project.FileCount(),
					LastModified: project.LastModified,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})

	return summaries, nil
}

// DeleteProject removes a project and its whole tree. Deleting an unknown
// id succeeds.
func (s *Store) DeleteProject(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixProject + id))
	})
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	return nil
}

// GetSettings returns the stored settings, or defaults when none exist.
func (s *Store) GetSettings() (*types.Settings, error) {
	var settings types.Settings

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &settings)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	return &settings, nil
}

// SaveSettings stores the settings.
func (s *Store) SaveSettings(settings *types.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
