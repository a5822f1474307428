package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Load returns the persisted records, or an empty slice when the backing
// file is absent or unreadable. A corrupt store is treated as no prior
// history, never as a fatal error.
func Load(path string) []CaseRecord {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Record store unreadable, starting with empty history: %v", err)
		}
		return nil
	}

	var records []CaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("Record store corrupt, starting with empty history: %v", err)
		return nil
	}
	return records
}

// MergeAndSave filters the newly collected batch to records whose
// source_url is not already present, and if any remain writes
// existing ++ new back as a single replace. Returns the number of records
// appended. With nothing new, no write happens and the file is untouched.
func MergeAndSave(path string, existing, collected []CaseRecord) (int, error) {
	known := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[rec.SourceURL] = struct{}{}
	}

	var fresh []CaseRecord
	for _, rec := range collected {
		if _, dup := known[rec.SourceURL]; dup {
			continue
		}
		known[rec.SourceURL] = struct{}{}
		fresh = append(fresh, rec)
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	merged := make([]CaseRecord, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)

	if err := write(path, merged); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// write replaces the store file atomically: the new content lands in a
// temp file in the same directory and is renamed over the old one, so a
// failed write leaves the previous file intact.
func write(path string, records []CaseRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".records-*.json")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting store permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}
