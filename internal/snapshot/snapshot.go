// Package snapshot defines the durable artifacts the preparer writes and
// the import stages consume. Every file embeds a schema version that
// consumers validate on read, so a stage never misreads an artifact
// produced by an incompatible pipeline build.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/metadata"
)

// SchemaVersion is the current artifact schema. Bump when any entry shape
// changes incompatibly.
const SchemaVersion = 1

// SourcePrimary and SourcePlaceholder are the provenance tags on user
// entries.
const (
	SourcePrimary     = "primary"
	SourcePlaceholder = "placeholder"
)

// UserEntry is one row of the user seed snapshot.
type UserEntry struct {
	UserID        string  `json:"user_id"`
	Email         string  `json:"email"`
	DisplayName   string  `json:"display_name"`
	Password      string  `json:"password"`
	PhoneVerified bool    `json:"phone_verified"`
	EmailVerified bool    `json:"email_verified"`
	RatingAvg     float64 `json:"rating_avg"`
	RatingCount   int     `json:"rating_count"`
	MemberSince   *string `json:"member_since"`
	Source        string  `json:"source"`
}

// ProductEntry is one row of the product seed snapshot.
type ProductEntry struct {
	ProductID    string             `json:"product_id"`
	SellerID     string             `json:"seller_id"`
	SellerEmail  string             `json:"seller_email"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	PriceAUD     float64            `json:"price_aud"`
	PriceCents   int64              `json:"price_cents"`
	Condition    string             `json:"condition"`
	CategoryID   int                `json:"category_id"`
	FreeShipping bool               `json:"free_shipping"`
	Images       []dataset.ImageRef `json:"images"`
	ImageCount   int                `json:"image_count"`
	DatasetPart  string             `json:"dataset_part"`
}

// ImportResult joins a dataset product id to the remote product the API
// minted for it. Written by the product stage, consumed by the image stage.
type ImportResult struct {
	DatasetProductID string `json:"dataset_product_id"`
	ProductID        string `json:"product_id"`
	SellerID         string `json:"seller_id"`
}

// envelope wraps entries with the schema marker.
type envelope[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Entries       []T `json:"entries"`
}

// IncompatibleError reports an artifact written by a different schema
// version.
type IncompatibleError struct {
	Path    string
	Version int
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("snapshot %s has schema version %d, want %d", e.Path, e.Version, SchemaVersion)
}

func write[T any](path string, entries []T) error {
	return metadata.WriteJSON(path, envelope[T]{SchemaVersion: SchemaVersion, Entries: entries})
}

func read[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, &IncompatibleError{Path: path, Version: env.SchemaVersion}
	}
	return env.Entries, nil
}

// WriteUsers persists the user seed snapshot.
func WriteUsers(path string, entries []UserEntry) error { return write(path, entries) }

// ReadUsers loads and validates the user seed snapshot.
func ReadUsers(path string) ([]UserEntry, error) { return read[UserEntry](path) }

// WriteProducts persists the product seed snapshot.
func WriteProducts(path string, entries []ProductEntry) error { return write(path, entries) }

// ReadProducts loads and validates the product seed snapshot.
func ReadProducts(path string) ([]ProductEntry, error) { return read[ProductEntry](path) }

// WriteResults persists the product import result mapping.
func WriteResults(path string, entries []ImportResult) error { return write(path, entries) }

// ReadResults loads and validates the product import result mapping.
func ReadResults(path string) ([]ImportResult, error) { return read[ImportResult](path) }
