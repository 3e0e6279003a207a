package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

// Users registers the prepared seed users. Re-running against a partially
// seeded environment is safe: a duplicate-email rejection is an expected
// idempotent outcome and counts as a skip.
type Users struct {
	cfg    *config.Config
	client Service
	log    *slog.Logger
}

// NewUsers creates the user import stage.
func NewUsers(cfg *config.Config, client Service, log *slog.Logger) *Users {
	return &Users{cfg: cfg, client: client, log: log}
}

// UsersResult reports what a user import run did.
type UsersResult struct {
	Total    int
	Imported int
	Skipped  int
}

// Run imports the user seed snapshot.
func (u *Users) Run(ctx context.Context, opts Options) (*UsersResult, error) {
	entries, err := u.loadSnapshot(opts.IncludePlaceholders)
	if err != nil {
		return nil, err
	}
	u.log.Info("prepared users for import",
		"count", len(entries), "include_placeholders", opts.IncludePlaceholders)

	if !opts.Execute {
		fmt.Fprintln(opts.out(), "Dry run: listing first 5 payloads")
		for i, entry := range entries {
			if i >= 5 {
				break
			}
			fmt.Fprintf(opts.out(), "  %s  %q  password=%s\n", entry.Email, entry.DisplayName, entry.Password)
		}
		return &UsersResult{Total: len(entries)}, nil
	}

	result := &UsersResult{Total: len(entries)}
	batch := opts.batch(20)
	for i, entry := range entries {
		pipeline.ReportProgress(ctx, fmt.Sprintf("registering user %d/%d", i+1, len(entries)))
		_, err := u.client.RegisterUser(ctx, api.RegisterRequest{
			Email:       entry.Email,
			Password:    entry.Password,
			DisplayName: entry.DisplayName,
		})
		if err != nil {
			if api.ClassifyRemoteError(err) == api.ClassDuplicateEmail {
				u.log.Info("user already exists, skipping", "email", entry.Email)
				result.Skipped++
				continue
			}
			u.log.Error("failed to register user", "email", entry.Email, "error", err)
			return result, fmt.Errorf("register %s: %w", entry.Email, err)
		}
		result.Imported++
		if result.Imported%batch == 0 {
			u.log.Info("import progress", "imported", result.Imported, "skipped", result.Skipped)
		}
	}

	fmt.Fprintf(opts.out(), "Import completed: %d new users imported, %d duplicates skipped\n",
		result.Imported, result.Skipped)
	return result, nil
}

func (u *Users) loadSnapshot(includePlaceholders bool) ([]snapshot.UserEntry, error) {
	path := u.cfg.OutputFile("user_seed_snapshot.json")
	entries, err := snapshot.ReadUsers(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("user_seed_snapshot.json not found, run `prepare` before importing users")
	}
	if err != nil {
		return nil, err
	}
	if includePlaceholders {
		return entries, nil
	}
	primary := entries[:0:0]
	for _, e := range entries {
		if e.Source != snapshot.SourcePlaceholder {
			primary = append(primary, e)
		}
	}
	return primary, nil
}
