package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	uploadsFile = "uploads.json"
	wipesFile   = "wipes.json"
)

// Store manages persistence of upload and wipe records.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a Store rooted at the given directory (typically .luatool/).
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) historyDir() string {
	return filepath.Join(s.root, "history")
}

// AddUpload appends an upload record, assigning an ID if it has none.
func (s *Store) AddUpload(r UploadRecord) (UploadRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return r, s.appendRecord(uploadsFile, r)
}

// AddWipe appends a wipe record, assigning an ID if it has none.
func (s *Store) AddWipe(r WipeRecord) (WipeRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return r, s.appendRecord(wipesFile, r)
}

// Uploads returns all upload records, oldest first.
func (s *Store) Uploads() ([]UploadRecord, error) {
	var records []UploadRecord
	err := s.loadRecords(uploadsFile, &records)
	return records, err
}

// Wipes returns all wipe records, oldest first.
func (s *Store) Wipes() ([]WipeRecord, error) {
	var records []WipeRecord
	err := s.loadRecords(wipesFile, &records)
	return records, err
}

// LastUpload returns the most recent upload of dest, if any.
func (s *Store) LastUpload(dest string) (UploadRecord, bool, error) {
	records, err := s.Uploads()
	if err != nil {
		return UploadRecord{}, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Dest == dest {
			return records[i], true, nil
		}
	}
	return UploadRecord{}, false, nil
}

func (s *Store) appendRecord(filename string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.historyDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)

	// Read existing records; never overwrite a file we cannot parse
	var records []json.RawMessage
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("history %s is corrupt: %w", filename, err)
		}
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	records = append(records, raw)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) loadRecords(filename string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.historyDir(), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dest)
}
