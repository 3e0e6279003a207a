package importer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

func userEntries() []snapshot.UserEntry {
	return []snapshot.UserEntry{
		{UserID: "u1", Email: "alice@example.com", DisplayName: "Alice", Password: "weihaimo", Source: snapshot.SourcePrimary},
		{UserID: "u2", Email: "bob@example.com", DisplayName: "Bob", Password: "weihaimo", Source: snapshot.SourcePrimary},
		{UserID: "ghost-seller-0042", Email: "seed-seller+ghost-se@koalaswap.local", DisplayName: "Seed Seller GHOST-SE", Password: "weihaimo", Source: snapshot.SourcePlaceholder},
	}
}

func TestUsersDuplicateEmailCountsAsSkip(t *testing.T) {
	cfg := testConfig(t)
	writeUserSnapshot(t, cfg, userEntries())

	fake := &fakeService{
		registerFn: func(req api.RegisterRequest) (map[string]any, error) {
			if req.Email == "bob@example.com" {
				return nil, duplicateEmailError()
			}
			return map[string]any{"id": "user-" + req.Email}, nil
		},
	}
	stage := NewUsers(cfg, fake, quietLogger())
	var out bytes.Buffer
	result, err := stage.Run(context.Background(), Options{Execute: true, Out: &out})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Contains(t, out.String(), "1 new users imported, 1 duplicates skipped")
}

func TestUsersPlaceholdersFilteredByDefault(t *testing.T) {
	cfg := testConfig(t)
	writeUserSnapshot(t, cfg, userEntries())
	fake := &fakeService{}
	stage := NewUsers(cfg, fake, quietLogger())

	result, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.NotContains(t, fake.calls, "register:seed-seller+ghost-se@koalaswap.local")

	result, err = stage.Run(context.Background(), Options{Execute: true, IncludePlaceholders: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Contains(t, fake.calls, "register:seed-seller+ghost-se@koalaswap.local")
}

func TestUsersUnexpectedErrorIsFatal(t *testing.T) {
	cfg := testConfig(t)
	writeUserSnapshot(t, cfg, userEntries())

	fake := &fakeService{
		registerFn: func(req api.RegisterRequest) (map[string]any, error) {
			if req.Email == "alice@example.com" {
				return nil, &api.OperationError{Op: "register user", Status: 500, Detail: "internal error"}
			}
			return map[string]any{}, nil
		},
	}
	stage := NewUsers(cfg, fake, quietLogger())
	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alice@example.com")
	assert.Len(t, fake.calls, 1)
}

func TestUsersDryRunMakesNoRemoteCalls(t *testing.T) {
	cfg := testConfig(t)
	writeUserSnapshot(t, cfg, userEntries())
	fake := &fakeService{}
	stage := NewUsers(cfg, fake, quietLogger())

	var out bytes.Buffer
	result, err := stage.Run(context.Background(), Options{Out: &out})
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.Equal(t, 0, result.Imported)
	assert.Contains(t, out.String(), "alice@example.com")
}

func TestUsersMissingSnapshotExplainsPrepare(t *testing.T) {
	cfg := testConfig(t)
	stage := NewUsers(cfg, &fakeService{}, quietLogger())
	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `prepare`")
}
