// Package product loads and caches per-product ROI and color-range
// configuration from the filesystem (§3 "Product configuration").
package product

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bosocmputer/visual-inspector/internal/capability"
	"github.com/bosocmputer/visual-inspector/internal/roi"
)

// Config is one product's fully normalized inspection recipe.
type Config struct {
	Name   string
	ROIs   []roi.ROI
	Colors map[int][]capability.ColorRange // keyed by ROI idx
}

// GoldenDir returns the per-ROI golden directory for this product.
func (c Config) GoldenDir(configRoot string, idx int) string {
	return filepath.Join(configRoot, "products", c.Name, "golden_rois", fmt.Sprintf("roi_%d", idx))
}

type colorRangeFile struct {
	Name         string     `json:"name"`
	Lower        [3]float64 `json:"lower"`
	Upper        [3]float64 `json:"upper"`
	ColorSpace   string     `json:"color_space"`
	ThresholdPct float64    `json:"threshold"`
	ROIIdx       int        `json:"roi_idx"`
}

// Store is a TTL-cached, mutex-guarded loader for product.Config,
// grounded on the teacher's double-checked-locking master-data cache
// shape: a read under RLock, promoted to a write lock only on a miss or
// expiry.
type Store struct {
	ConfigRoot string
	TTL        time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	cfg       Config
	expiresAt time.Time
}

func NewStore(configRoot string, ttl time.Duration) *Store {
	return &Store{ConfigRoot: configRoot, TTL: ttl, cache: make(map[string]cacheEntry)}
}

// Load returns the normalized, validated config for a product, serving
// from cache when fresh and reloading from disk otherwise.
func (s *Store) Load(name string) (Config, error) {
	s.mu.RLock()
	entry, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.cfg, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-checked: another goroutine may have refreshed while we
	// waited for the write lock.
	if entry, ok := s.cache[name]; ok && time.Now().Before(entry.expiresAt) {
		return entry.cfg, nil
	}

	cfg, err := s.loadFromDisk(name)
	if err != nil {
		return Config{}, err
	}

	s.cache[name] = cacheEntry{cfg: cfg, expiresAt: time.Now().Add(s.TTL)}
	return cfg, nil
}

func (s *Store) loadFromDisk(name string) (Config, error) {
	dir := filepath.Join(s.ConfigRoot, "products", name)

	roisPath := filepath.Join(dir, fmt.Sprintf("rois_config_%s.json", name))
	raw, err := os.ReadFile(roisPath)
	if err != nil {
		return Config{}, fmt.Errorf("product %q: reading roi config: %w", name, err)
	}

	var rawRows []roi.Raw
	if err := json.Unmarshal(raw, &rawRows); err != nil {
		return Config{}, fmt.Errorf("product %q: parsing roi config: %w", name, err)
	}

	rois := make([]roi.ROI, 0, len(rawRows))
	for i, rr := range rawRows {
		r, err := roi.Normalize(rr)
		if err != nil {
			return Config{}, fmt.Errorf("product %q: normalizing roi row %d: %w", name, i, err)
		}
		rois = append(rois, r)
	}
	if err := roi.ValidateSet(rois); err != nil {
		return Config{}, fmt.Errorf("product %q: %w", name, err)
	}

	colors, err := s.loadColors(dir, name)
	if err != nil {
		return Config{}, err
	}

	return Config{Name: name, ROIs: rois, Colors: colors}, nil
}

// loadColors reads the optional colors_config file. Its absence is not
// an error: only Type 4 (Color) ROIs require it, and the coordinator
// will surface capability_unavailable for a Color ROI with no ranges.
func (s *Store) loadColors(dir, name string) (map[int][]capability.ColorRange, error) {
	path := filepath.Join(dir, fmt.Sprintf("colors_config_%s.json", name))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("product %q: reading color config: %w", name, err)
	}

	var rows []colorRangeFile
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("product %q: parsing color config: %w", name, err)
	}

	out := make(map[int][]capability.ColorRange)
	for _, row := range rows {
		space := capability.RGB
		if row.ColorSpace == "HSV" {
			space = capability.HSV
		}
		out[row.ROIIdx] = append(out[row.ROIIdx], capability.ColorRange{
			Name:         row.Name,
			Lower:        row.Lower,
			Upper:        row.Upper,
			Space:        space,
			ThresholdPct: row.ThresholdPct,
		})
	}
	return out, nil
}

// Invalidate drops a product's cached config, forcing the next Load to
// re-read from disk.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}
