// Package store reads and writes the rules document on disk.
package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brutella/hc/util"
	log "github.com/sirupsen/logrus"
)

//go:embed rules_default.json
var defaultRules []byte

// Document is the rules file as the web editor sees it
type Document struct {
	RemoteControlID string  `json:"remoteControlId"`
	FreeboxHost     string  `json:"freeboxHost,omitempty"`
	Rules           []Entry `json:"rules"`
}

// Entry is one button mapping. Button+Key is a templated Freebox key press,
// Action/EndPoint/ExData select anything else.
type Entry struct {
	Button   string `json:"Button"`
	Key      string `json:"Key"`
	Name     string `json:"Name,omitempty"`
	Action   string `json:"Action,omitempty"`
	EndPoint string `json:"EndPoint,omitempty"`
	ExData   string `json:"ExData,omitempty"`
}

// Store is the rules file in a directory
type Store struct {
	mu      sync.Mutex
	storage util.Storage
	dir     string
	key     string
}

// New opens the store for path, creating the directory if needed
func New(path string) (*Store, error) {
	dir, key := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	storage, err := util.NewFileStorage(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to get storage in %s: %w", dir, err)
	}
	return &Store{storage: storage, dir: dir, key: key}, nil
}

// Default is the bundled default document
func Default() []byte {
	cp := make([]byte, len(defaultRules))
	copy(cp, defaultRules)
	return cp
}

// Path is the file on disk
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.key)
}

// Load returns the raw document, writing the default first if there is none yet
func (s *Store) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.Path()); os.IsNotExist(err) {
		log.Warnf("%s not found, copying from default rules", s.Path())
		if err := s.storage.Set(s.key, defaultRules); err != nil {
			return nil, fmt.Errorf("unable to write %s: %w", s.Path(), err)
		}
		log.Infof("Generated new %s from default configuration", s.key)
	}

	raw, err := s.storage.Get(s.key)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", s.Path(), err)
	}
	return raw, nil
}

// Read returns the parsed document
func (s *Store) Read() (Document, error) {
	var doc Document
	raw, err := s.Load()
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("unable to parse %s: %w", s.Path(), err)
	}
	return doc, nil
}

// Save replaces the whole document and returns what was written
func (s *Store) Save(doc Document) ([]byte, error) {
	if doc.Rules == nil {
		doc.Rules = []Entry{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(s.key, raw); err != nil {
		return nil, fmt.Errorf("unable to write %s: %w", s.Path(), err)
	}
	log.Info("Rules saved successfully")
	return raw, nil
}

// Reset overwrites the document with the bundled default
func (s *Store) Reset() (Document, []byte, error) {
	var doc Document
	if err := json.Unmarshal(defaultRules, &doc); err != nil {
		return doc, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(s.key, defaultRules); err != nil {
		return doc, nil, fmt.Errorf("unable to write %s: %w", s.Path(), err)
	}
	log.Info("Rules reset to default")
	return doc, Default(), nil
}
