// Package metadata persists the derived artifacts that keep repeated
// pipeline runs stable: placeholder-seller identities, the category-label
// mapping, and per-user descriptive metadata.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lukman83/koalaswap-seed/config"
)

// PlaceholderSeller is a synthetic identity invented for a product whose
// seller id has no user record. Once persisted it must never change: its
// email and password become durable login credentials for later import runs.
type PlaceholderSeller struct {
	SellerID    string `json:"seller_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// UserMetadata is the cached name fields other tooling reads without
// loading full user records.
type UserMetadata struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Store is a JSON-file key-value store over the output directory. Reads
// are best-effort (a missing file is an empty result); writes always
// overwrite in full, the preparer being the sole writer.
type Store struct {
	sellerFile       string
	categoryFile     string
	userMetadataFile string
	defaultPassword  string
}

// NewStore creates a Store over the configured output directory.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		sellerFile:       cfg.OutputFile("seed_seller_mapping.json"),
		categoryFile:     cfg.OutputFile("category_mapping.json"),
		userMetadataFile: cfg.OutputFile("seed_user_metadata.json"),
		defaultPassword:  cfg.DefaultPassword,
	}
}

// LoadPlaceholderSellers returns the persisted placeholder identities keyed
// by seller id. A missing file means a first run and yields an empty map.
func (s *Store) LoadPlaceholderSellers() (map[string]PlaceholderSeller, error) {
	data, err := os.ReadFile(s.sellerFile)
	if os.IsNotExist(err) {
		return map[string]PlaceholderSeller{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.sellerFile, err)
	}
	var entries []PlaceholderSeller
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.sellerFile, err)
	}
	sellers := make(map[string]PlaceholderSeller, len(entries))
	for _, e := range entries {
		if e.Password == "" {
			e.Password = s.defaultPassword
		}
		sellers[e.SellerID] = e
	}
	return sellers, nil
}

// SavePlaceholderSellers overwrites the placeholder mapping, sorted by
// seller id for stable diffs.
func (s *Store) SavePlaceholderSellers(sellers []PlaceholderSeller) error {
	sorted := make([]PlaceholderSeller, len(sellers))
	copy(sorted, sellers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SellerID < sorted[j].SellerID })
	return WriteJSON(s.sellerFile, sorted)
}

// LoadCategoryMapping returns the persisted category-label mapping, empty
// when no run has produced one yet.
func (s *Store) LoadCategoryMapping() (map[string]int, error) {
	data, err := os.ReadFile(s.categoryFile)
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.categoryFile, err)
	}
	var mapping map[string]int
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.categoryFile, err)
	}
	return mapping, nil
}

// SaveCategoryMapping overwrites the category-label mapping.
func (s *Store) SaveCategoryMapping(mapping map[string]int) error {
	return WriteJSON(s.categoryFile, mapping)
}

// SaveUserMetadata overwrites the per-user name cache.
func (s *Store) SaveUserMetadata(metadata map[string]UserMetadata) error {
	return WriteJSON(s.userMetadataFile, metadata)
}

// WriteJSON writes v as indented, human-diffable JSON, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads a JSON file into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
