package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holoconf/holo"
	"github.com/holoconf/holo/diff"
	"github.com/holoconf/holo/internal/uuid"
	"github.com/holoconf/holo/store"
)

const currentFilename = "current"
const indexFilename = "index.json"

// Store persists snapshots under a Paths.Snapshots root. Callers are
// responsible for holding at least a Shared store lock for reads and an
// Exclusive lock for any mutating call.
type Store struct {
	paths store.Paths
}

// NewStore returns a Store rooted at paths.
func NewStore(paths store.Paths) *Store {
	return &Store{paths: paths}
}

// NewID returns a fresh random snapshot identifier.
func NewID() string {
	return uuid.NewString()
}

func (s *Store) snapshotPath(id string) string {
	return filepath.Join(s.paths.Snapshots, id+".json")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.paths.Snapshots, indexFilename)
}

func (s *Store) currentPath() string {
	return filepath.Join(s.paths.Snapshots, currentFilename)
}

// Save writes snap atomically, appends it to the index, and atomically
// advances the current pointer to it.
func (s *Store) Save(snap Snapshot) error {
	if err := os.MkdirAll(s.paths.Snapshots, 0o777); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	if err := writeAtomic(s.snapshotPath(snap.ID), data); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}

	index, err := s.LoadIndex()
	if err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	index = append(index, IndexEntry{ID: snap.ID, CreatedAt: snap.CreatedAt})
	if err := s.writeIndex(index); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}

	return writeAtomic(s.currentPath(), []byte(snap.ID))
}

// LoadSnapshot reads and parses the snapshot with the given id.
func (s *Store) LoadSnapshot(id string) (Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(id))
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return snap, nil
}

// LoadCurrent returns the current snapshot, or ok=false if none has ever
// been saved.
func (s *Store) LoadCurrent() (snap Snapshot, ok bool, err error) {
	data, err := os.ReadFile(s.currentPath())
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load current snapshot: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return Snapshot{}, false, nil
	}
	snap, err = s.LoadSnapshot(id)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// LoadIndex returns the ordered list of every saved snapshot's index
// entry, in creation order.
func (s *Store) LoadIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot index: %w", err)
	}
	var index []IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("load snapshot index: %w", err)
	}
	return index, nil
}

func (s *Store) writeIndex(index []IndexEntry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return writeAtomic(s.indexPath(), data)
}

// Tag adds name to the tags of the snapshot identified by id.
func (s *Store) Tag(id, name string) error {
	return s.mutateEntry(id, func(e *IndexEntry) {
		for _, t := range e.Tags {
			if t == name {
				return
			}
		}
		e.Tags = append(e.Tags, name)
	})
}

// Untag removes name from the snapshot's tags, or clears all tags when
// name is empty.
func (s *Store) Untag(id, name string) error {
	return s.mutateEntry(id, func(e *IndexEntry) {
		if name == "" {
			e.Tags = nil
			return
		}
		kept := e.Tags[:0]
		for _, t := range e.Tags {
			if t != name {
				kept = append(kept, t)
			}
		}
		e.Tags = kept
	})
}

func (s *Store) mutateEntry(id string, mutate func(*IndexEntry)) error {
	index, err := s.LoadIndex()
	if err != nil {
		return err
	}
	found := false
	for i := range index {
		if index[i].ID == id {
			mutate(&index[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("snapshot %s not found in index", id)
	}
	return s.writeIndex(index)
}

// Delete removes the snapshot file and its index entry. Deleting the
// current snapshot is refused; the current pointer is never touched by
// a successful delete of any other snapshot.
func (s *Store) Delete(id string) error {
	current, ok, err := s.LoadCurrent()
	if err != nil {
		return err
	}
	if ok && current.ID == id {
		return fmt.Errorf("refusing to delete the current snapshot %s", id)
	}

	index, err := s.LoadIndex()
	if err != nil {
		return err
	}
	kept := index[:0]
	found := false
	for _, e := range index {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("snapshot %s not found in index", id)
	}
	if err := s.writeIndex(kept); err != nil {
		return err
	}
	return os.Remove(s.snapshotPath(id))
}

// ComputeDiff computes a StateDiff between desired and the manifest of
// the snapshot identified by currentID, or against an empty store if
// currentID is empty.
func (s *Store) ComputeDiff(desired holo.Manifest, currentID string) (diff.StateDiff, error) {
	if currentID == "" {
		return diff.Compute(desired, nil), nil
	}
	current, err := s.LoadSnapshot(currentID)
	if err != nil {
		return diff.StateDiff{}, err
	}
	return diff.Compute(desired, &current.Manifest), nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
