package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teemow/apkship/internal/logging"
)

// AuthorizedUserType is the record type understood by Google client
// libraries for user refresh-token credentials.
const AuthorizedUserType = "authorized_user"

// Record is the locally persisted Authorization Record.
// Its JSON layout matches the "authorized_user" credential file format, so
// the file can also be used as application default credentials.
type Record struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// Store reads and writes the Authorization Record at a fixed path.
// There is a single writer per process and no file locking.
type Store struct {
	path   string
	logger logging.Logger
}

// NewStore creates a Store for the record at path.
func NewStore(path string, logger logging.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.OrDefault(logger),
	}
}

// Path returns the location of the record file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. Missing, unreadable and malformed records are all
// reported as absent; Load never fails.
func (s *Store) Load() (*Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Debug("no authorization record", logging.Path(s.path), logging.Err(err))
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Debug("authorization record is not valid JSON", logging.Path(s.path), logging.Err(err))
		return nil, false
	}
	if rec.Type != AuthorizedUserType {
		s.logger.Debug("authorization record has unexpected type", logging.Path(s.path), "type", rec.Type)
		return nil, false
	}
	if rec.RefreshToken == "" || rec.ClientID == "" {
		s.logger.Debug("authorization record is incomplete", logging.Path(s.path))
		return nil, false
	}

	return &rec, true
}

// Save writes the record, replacing any previous one. The refresh token is
// stored in plaintext, readable only by the current user.
func (s *Store) Save(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode authorization record: %w", err)
	}

	if err := writePrivateFile(s.path, data); err != nil {
		return fmt.Errorf("failed to write authorization record: %w", err)
	}

	s.logger.Debug("saved authorization record",
		logging.Path(s.path),
		"refresh_token", logging.SanitizeToken(rec.RefreshToken))
	return nil
}

// Delete removes the record. A missing record is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete authorization record: %w", err)
	}
	return nil
}

// writePrivateFile writes data to path with 0600 permissions, creating the
// parent directory with 0700.
func writePrivateFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}
