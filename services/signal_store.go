package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"go_signals_project/models"

	"github.com/shopspring/decimal"
)

// Store error taxonomy, surfaced to HTTP callers as 400s
var (
	ErrDuplicateAsset = errors.New("ativo already exists")
	ErrInvalidAsset   = errors.New("ativo is invalid")
	ErrDuplicateEntry = errors.New("disparo already scheduled")
	ErrEntryNotFound  = errors.New("disparo not found")
)

// DefaultAssets seeds a fresh store document
var DefaultAssets = []string{"BNB/USDT", "XRP/USD", "BTC/USD", "ETH/USDT", "DOGE/USD", "SOL/USD"}

// SignalStore is the durable mapping of known assets and pending schedule
// entries. Implementations must serialize every read-modify-persist cycle.
type SignalStore interface {
	ListAssets() ([]string, error)
	AddAsset(ativo string) ([]string, error)
	ListPendingEntries() ([]models.ScheduleEntry, error)
	AddEntry(entry models.ScheduleEntry) ([]models.ScheduleEntry, error)
	PrunePendingEntries(keep func(models.ScheduleEntry) bool) ([]models.ScheduleEntry, error)
	RecordEntryPrice(entry models.ScheduleEntry, price decimal.Decimal) error
}

// storeDocument is the single persisted JSON document
type storeDocument struct {
	Ativos   []string               `json:"ativos"`
	Disparos []models.ScheduleEntry `json:"disparos"`
}

// FileStore persists the store document as one JSON file on disk
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens the store at path, seeding the default document if the
// file does not exist yet
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		seed := storeDocument{Ativos: append([]string{}, DefaultAssets...), Disparos: []models.ScheduleEntry{}}
		if err := s.persist(seed); err != nil {
			return nil, err
		}
		log.Printf("Seeded new store document at %s with %d default assets", path, len(seed.Ativos))
		return s, nil
	}

	// Verify the existing document parses before serving from it
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (storeDocument, error) {
	var doc storeDocument

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse store file: %w", err)
	}
	if doc.Ativos == nil {
		doc.Ativos = []string{}
	}
	if doc.Disparos == nil {
		doc.Disparos = []models.ScheduleEntry{}
	}
	return doc, nil
}

// persist writes the document through a temp file + rename so a crashed write
// never leaves a half-written store behind
func (s *FileStore) persist(doc storeDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// ListAssets returns the configured assets in insertion order
func (s *FileStore) ListAssets() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Ativos, nil
}

// AddAsset appends a new asset and persists. Duplicates are matched case
// sensitively on the exact identifier.
func (s *FileStore) AddAsset(ativo string) ([]string, error) {
	if err := models.ValidateAsset(ativo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, a := range doc.Ativos {
		if a == ativo {
			return nil, ErrDuplicateAsset
		}
	}
	doc.Ativos = append(doc.Ativos, ativo)
	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return doc.Ativos, nil
}

// ListPendingEntries returns a snapshot of the pending schedule entries
func (s *FileStore) ListPendingEntries() ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Disparos, nil
}

// AddEntry appends a new schedule entry and persists
func (s *FileStore) AddEntry(entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, d := range doc.Disparos {
		if d.Key() == entry.Key() {
			return nil, ErrDuplicateEntry
		}
	}
	doc.Disparos = append(doc.Disparos, entry)
	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return doc.Disparos, nil
}

// PrunePendingEntries partitions the pending set under the store lock and
// persists only the kept entries, returning them. The manual dispatch loop
// uses this to drop fired entries; an entry submitted while a pass runs lands
// before or after the whole cycle, never inside it.
func (s *FileStore) PrunePendingEntries(keep func(models.ScheduleEntry) bool) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	kept := make([]models.ScheduleEntry, 0, len(doc.Disparos))
	for _, entry := range doc.Disparos {
		if keep(entry) {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(doc.Disparos) {
		return kept, nil
	}

	doc.Disparos = kept
	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return kept, nil
}

// RecordEntryPrice locates the entry by identity and records the price
// captured at fire time
func (s *FileStore) RecordEntryPrice(entry models.ScheduleEntry, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Disparos {
		if doc.Disparos[i].Key() == entry.Key() {
			doc.Disparos[i].SetEntryPrice(price)
			return s.persist(doc)
		}
	}
	return ErrEntryNotFound
}
