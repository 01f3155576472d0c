package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// PriceStore persists the last known prices as a small JSON file such as
// {"btc": 115000.0, "eth": 3500.0}. There is no locking: the last writer wins
// and readers see either the old or the new file thanks to the rename.
type PriceStore struct {
	path    string
	catalog *models.AssetCatalog
}

// NewPriceStore creates a store backed by the file at path
func NewPriceStore(path string, catalog *models.AssetCatalog) *PriceStore {
	return &PriceStore{path: path, catalog: catalog}
}

// Path returns the backing file location
func (s *PriceStore) Path() string {
	return s.path
}

// Load returns the persisted prices with upper-cased keys, or the catalog's
// default prices when nothing has been persisted yet. A corrupt file also
// yields the defaults, together with the decode error for the caller to log.
func (s *PriceStore) Load() (models.PriceMap, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.catalog.DefaultPrices(), nil
	}
	if err != nil {
		return s.catalog.DefaultPrices(), fmt.Errorf("failed to read price store: %w", err)
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return s.catalog.DefaultPrices(), fmt.Errorf("failed to parse price store %s: %w", s.path, err)
	}

	prices := make(models.PriceMap, len(raw))
	for k, v := range raw {
		prices[models.NormalizeAsset(k)] = v
	}
	return prices, nil
}

// Save overwrites the file with the recognized assets of prices, keys lower-cased
func (s *PriceStore) Save(prices models.PriceMap) error {
	out := make(map[string]float64, len(prices))
	for a, v := range prices {
		if s.catalog.Has(a) {
			out[a.Lower()] = v
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode prices: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create price store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write prices: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write prices: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace price store: %w", err)
	}
	return nil
}
