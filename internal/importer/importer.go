// Package importer replays prepared seed snapshots against the marketplace
// API: users first, then products, then images, each stage keying off the
// identifiers the previous one minted.
package importer

import (
	"context"
	"io"
	"os"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

// Service is the remote boundary the import stages drive. *api.Client
// implements it; tests substitute a fake.
type Service interface {
	RegisterUser(ctx context.Context, req api.RegisterRequest) (map[string]any, error)
	Login(ctx context.Context, email, password string) (string, error)
	CreateProduct(ctx context.Context, token string, payload api.ProductPayload) (map[string]any, error)
	RequestImageUpload(ctx context.Context, token string, req api.UploadRequest) (*api.UploadTarget, error)
	UploadFile(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error
	AttachProductImages(ctx context.Context, token, productID string, cdnURLs []string) error
}

// Options control one stage run.
type Options struct {
	// Execute performs remote calls; false is a dry run that only prints
	// a bounded payload preview.
	Execute bool
	// BatchSize is the progress-log interval; stage defaults apply when
	// zero.
	BatchSize int
	// IncludePlaceholders registers placeholder sellers together with
	// primary users (user stage only).
	IncludePlaceholders bool
	// Out receives dry-run previews and stage summaries; os.Stdout when
	// nil.
	Out io.Writer
}

func (o Options) out() io.Writer {
	if o.Out != nil {
		return o.Out
	}
	return os.Stdout
}

func (o Options) batch(fallback int) int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return fallback
}

type sellerCredentials struct {
	sellerID string
	email    string
	password string
}

// loadSellerCredentials indexes the user seed snapshot by user id; the
// product and image stages both authenticate sellers from it.
func loadSellerCredentials(cfg *config.Config) (map[string]sellerCredentials, error) {
	entries, err := snapshot.ReadUsers(cfg.OutputFile("user_seed_snapshot.json"))
	if err != nil {
		return nil, err
	}
	credentials := make(map[string]sellerCredentials, len(entries))
	for _, e := range entries {
		credentials[e.UserID] = sellerCredentials{sellerID: e.UserID, email: e.Email, password: e.Password}
	}
	return credentials, nil
}
