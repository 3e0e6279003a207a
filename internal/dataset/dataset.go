// Package dataset reads the raw scraped user and product records the
// pipeline prepares for import. Source files have a fixed shape; anything
// malformed is a fatal CorruptError since downstream normalization assumes
// the required fields exist.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/lukman83/koalaswap-seed/config"
)

// ImageRef describes one listing image in the dataset.
type ImageRef struct {
	Filename  string `json:"filename"`
	Position  int    `json:"position,omitempty"`
	IsPrimary bool   `json:"is_primary,omitempty"`
}

// UserRecord is one synthetic user profile from the dataset.
type UserRecord struct {
	ID          string
	Email       string
	DisplayName string
	Username    string
	FirstName   string
	LastName    string
	Extra       map[string]any
}

// ProductRecord is one scraped marketplace listing.
type ProductRecord struct {
	ID           string
	SellerID     string
	Title        string
	Description  string
	Price        int64
	OriginalText string
	Category     string
	Condition    string
	Images       []ImageRef
	Extra        map[string]any
}

// CorruptError reports a dataset file the pipeline cannot safely proceed
// with.
type CorruptError struct {
	File   string
	Reason string
	Err    error
}

func (e *CorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset %s corrupt: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("dataset %s corrupt: %s", e.File, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Loader reads dataset files from the configured dataset directory.
type Loader struct {
	cfg *config.Config
}

// NewLoader creates a Loader for the given configuration.
func NewLoader(cfg *config.Config) *Loader {
	return &Loader{cfg: cfg}
}

// LoadUsers reads users_complete.json, optionally merged with
// users_supplement.json. Supplement entries overwrite primary entries
// sharing the same id (later wins).
func (l *Loader) LoadUsers(includeSupplement bool) (map[string]UserRecord, error) {
	users, err := l.loadUserFile("users_complete.json")
	if err != nil {
		return nil, err
	}
	if includeSupplement {
		supplement, err := l.loadUserFile("users_supplement.json")
		if err != nil {
			return nil, err
		}
		for id, u := range supplement {
			users[id] = u
		}
	}
	return users, nil
}

func (l *Loader) loadUserFile(filename string) (map[string]UserRecord, error) {
	entries, err := l.readEntries(filename)
	if err != nil {
		return nil, err
	}
	records := make(map[string]UserRecord, len(entries))
	for i, entry := range entries {
		id, ok := stringField(entry, "id")
		if !ok {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d missing id", i)}
		}
		email, ok := stringField(entry, "email")
		if !ok {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d (%s) missing email", i, id)}
		}
		display, _ := stringField(entry, "display_name")
		if display == "" {
			display, _ = stringField(entry, "displayName")
		}
		username, _ := stringField(entry, "username")
		first, _ := stringField(entry, "first_name")
		last, _ := stringField(entry, "last_name")
		records[id] = UserRecord{
			ID:          id,
			Email:       email,
			DisplayName: display,
			Username:    username,
			FirstName:   first,
			LastName:    last,
			Extra:       entry,
		}
	}
	return records, nil
}

// LoadProducts reads the complete or supplement product partition.
func (l *Loader) LoadProducts(part string) ([]ProductRecord, error) {
	filename := "products_complete.json"
	if part != "complete" {
		filename = "products_supplement.json"
	}
	entries, err := l.readEntries(filename)
	if err != nil {
		return nil, err
	}
	products := make([]ProductRecord, 0, len(entries))
	for i, entry := range entries {
		id, ok := stringField(entry, "id")
		if !ok {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d missing id", i)}
		}
		sellerID, ok := stringField(entry, "seller_id")
		if !ok {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d (%s) missing seller_id", i, id)}
		}
		title, ok := stringField(entry, "title")
		if !ok {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d (%s) missing title", i, id)}
		}
		description, _ := stringField(entry, "description")
		originalText, _ := stringField(entry, "original_text")
		category, _ := stringField(entry, "category")
		condition, _ := stringField(entry, "condition")
		if condition == "" {
			condition = "GOOD"
		}
		images, err := imageRefs(entry["images"])
		if err != nil {
			return nil, &CorruptError{File: filename, Reason: fmt.Sprintf("entry %d (%s) bad images", i, id), Err: err}
		}
		products = append(products, ProductRecord{
			ID:           id,
			SellerID:     sellerID,
			Title:        title,
			Description:  description,
			Price:        intField(entry, "price"),
			OriginalText: originalText,
			Category:     category,
			Condition:    condition,
			Images:       images,
			Extra:        entry,
		})
	}
	return products, nil
}

func (l *Loader) readEntries(filename string) ([]map[string]any, error) {
	path := l.cfg.DatasetFile(filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CorruptError{File: filename, Reason: "unreadable", Err: err}
	}
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &CorruptError{File: filename, Reason: "not a JSON array of objects", Err: err}
	}
	return entries, nil
}

func imageRefs(raw any) ([]ImageRef, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var refs []ImageRef
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func stringField(entry map[string]any, key string) (string, bool) {
	v, ok := entry[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func intField(entry map[string]any, key string) int64 {
	switch v := entry[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// SellerIDs returns the distinct seller ids referenced by products, sorted
// so downstream placeholder discovery order is reproducible.
func SellerIDs(products []ProductRecord) []string {
	seen := make(map[string]bool)
	for _, p := range products {
		seen[p.SellerID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
