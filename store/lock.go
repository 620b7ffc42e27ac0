package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lockFilename = ".lock"

const lockMetadataVersion = 1

// LockMode selects shared (many readers) or exclusive (one writer)
// acquisition of the store lock.
type LockMode int

const (
	LockShared LockMode = iota
	LockExclusive
)

// LockMetadata is written into the lock file by the holder of an
// exclusive lock, and read back by a contending process to report who is
// holding it.
type LockMetadata struct {
	Version       int    `json:"version"`
	PID           int    `json:"pid"`
	StartedAtUnix int64  `json:"started_at_unix"`
	Command       string `json:"command"`
	Store         string `json:"store"`
}

// ContentionError is returned when the store lock could not be acquired
// because another process holds it.
type ContentionError struct {
	LockPath string
	Metadata *LockMetadata // nil if the metadata could not be read
}

func (e *ContentionError) Error() string {
	if e.Metadata == nil {
		return fmt.Sprintf("store is locked (could not read lock metadata): %s", e.LockPath)
	}
	return fmt.Sprintf("store is locked by %s (pid %d, started %s): %s",
		e.Metadata.Command, e.Metadata.PID,
		time.Unix(e.Metadata.StartedAtUnix, 0).UTC().Format(time.RFC3339), e.LockPath)
}

// StoreLock is a held advisory lock over the store root. Closing it
// releases the underlying flock; the file itself is left in place.
type StoreLock struct {
	file     *os.File
	lockPath string
}

// LockFile opens (creating if needed) path and takes a non-blocking flock
// in the given mode. Used for the store-wide lock (with metadata); the
// bare per-hash build locks (§4.6) are taken through LockFileWait.
func LockFile(path string, mode LockMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLock(f, mode); err != nil {
		f.Close()
		if err == errWouldBlock {
			return nil, readContentionError(path)
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return f, nil
}

// Acquire opens (creating if needed) the store's lock file and takes a
// non-blocking flock in the given mode. On exclusive acquisition it
// truncates the file and writes LockMetadata describing this process.
func Acquire(p Paths, mode LockMode, command string) (*StoreLock, error) {
	if err := os.MkdirAll(p.Store, 0o777); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	lockPath := p.LockPath()
	f, err := LockFile(lockPath, mode)
	if err != nil {
		return nil, err
	}

	if mode == LockExclusive {
		if err := writeMetadata(f, command, p.Store); err != nil {
			unlock(f)
			f.Close()
			return nil, err
		}
	}

	return &StoreLock{file: f, lockPath: lockPath}, nil
}

// Close releases the lock and closes the underlying file handle.
func (l *StoreLock) Close() error {
	unlock(l.file)
	return l.file.Close()
}

// LockPath returns the path of the lock file this StoreLock holds.
func (l *StoreLock) LockPath() string {
	return l.lockPath
}

// ReadMetadata reads back the metadata this lock wrote, for tests and
// diagnostics. Only meaningful while holding an exclusive lock.
func (l *StoreLock) ReadMetadata() (LockMetadata, error) {
	if _, err := l.file.Seek(0, 0); err != nil {
		return LockMetadata{}, err
	}
	var m LockMetadata
	if err := json.NewDecoder(l.file).Decode(&m); err != nil {
		return LockMetadata{}, err
	}
	return m, nil
}

func writeMetadata(f *os.File, command, storeDir string) error {
	m := LockMetadata{
		Version:       lockMetadataVersion,
		PID:           os.Getpid(),
		StartedAtUnix: time.Now().Unix(),
		Command:       command,
		Store:         storeDir,
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write lock metadata: %w", err)
	}
	return nil
}

func readContentionError(lockPath string) error {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return &ContentionError{LockPath: lockPath}
	}
	var m LockMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return &ContentionError{LockPath: lockPath}
	}
	return &ContentionError{LockPath: lockPath, Metadata: &m}
}
