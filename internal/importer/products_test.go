package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

func productEntries() []snapshot.ProductEntry {
	return []snapshot.ProductEntry{
		{ProductID: "p1", SellerID: "u1", SellerEmail: "alice@example.com", Title: "iPhone 13",
			PriceAUD: 100.0, PriceCents: 10000, Condition: "LIKE_NEW", CategoryID: 1011, DatasetPart: "complete"},
		{ProductID: "p2", SellerID: "u1", SellerEmail: "alice@example.com", Title: "Pixel 8",
			PriceAUD: 200.0, PriceCents: 20000, Condition: "GOOD", CategoryID: 1011, DatasetPart: "complete"},
		{ProductID: "p3", SellerID: "u2", SellerEmail: "bob@example.com", Title: "Mystery Box",
			PriceAUD: 10.64, PriceCents: 1064, Condition: "FAIR", CategoryID: 0, DatasetPart: "complete"},
	}
}

func productStage(t *testing.T, fake *fakeService) (*Products, func() ([]snapshot.ImportResult, error)) {
	t.Helper()
	cfg := testConfig(t)
	writeUserSnapshot(t, cfg, userEntries())
	writeProductSnapshot(t, cfg, productEntries())
	stage := NewProducts(cfg, fake, quietLogger())
	stage.settleWait = 0
	return stage, func() ([]snapshot.ImportResult, error) {
		return snapshot.ReadResults(cfg.OutputFile("product_import_results.json"))
	}
}

func TestProductsCreatesPerSellerAndRecordsMapping(t *testing.T) {
	fake := &fakeService{
		createFn: func(_ string, payload api.ProductPayload) (map[string]any, error) {
			return map[string]any{"id": "remote-" + payload.Title}, nil
		},
	}
	stage, readResults := productStage(t, fake)

	result, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 2, result.Sellers)

	mappings, err := readResults()
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, snapshot.ImportResult{DatasetProductID: "p1", ProductID: "remote-iPhone 13", SellerID: "u1"}, mappings[0])
	assert.Equal(t, "u2", mappings[2].SellerID)

	// sellers are processed in sorted order, each authenticated before
	// any of its creates
	assert.Equal(t, []string{
		"login:alice@example.com", "create:iPhone 13", "create:Pixel 8",
		"login:bob@example.com", "create:Mystery Box",
	}, fake.calls)
}

func TestProductsRegistersSellerWhenLoginFails(t *testing.T) {
	logins := map[string]int{}
	fake := &fakeService{
		loginFn: func(email, password string) (string, error) {
			logins[email]++
			if email == "bob@example.com" && logins[email] == 1 {
				return "", badCredentialsError()
			}
			return "token-" + email, nil
		},
	}
	stage, _ := productStage(t, fake)

	result, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)

	// bob's recovery sequence runs to completion before his product is
	// created
	assert.Equal(t, []string{
		"login:alice@example.com", "create:iPhone 13", "create:Pixel 8",
		"login:bob@example.com", "register:bob@example.com", "login:bob@example.com",
		"create:Mystery Box",
	}, fake.calls)
}

func TestProductsPersistentUnverifiedEmailIsBootstrapError(t *testing.T) {
	fake := &fakeService{
		loginFn: func(email, password string) (string, error) {
			if email == "alice@example.com" {
				return "", unverifiedEmailError()
			}
			return "token-" + email, nil
		},
		registerFn: func(req api.RegisterRequest) (map[string]any, error) {
			return nil, duplicateEmailError()
		},
	}
	stage, readResults := productStage(t, fake)

	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	var bootstrapErr *BootstrapError
	require.ErrorAs(t, err, &bootstrapErr)
	assert.Equal(t, "alice@example.com", bootstrapErr.Email)
	assert.Contains(t, err.Error(), "verify-emails")

	// no mapping file on a failed run
	_, err = readResults()
	assert.True(t, os.IsNotExist(err))
	assert.NotContains(t, fake.calls, "create:iPhone 13")
}

func TestProductsMissingRemoteIDIsFatal(t *testing.T) {
	fake := &fakeService{
		createFn: func(string, api.ProductPayload) (map[string]any, error) {
			return map[string]any{"status": "created"}, nil
		},
	}
	stage, readResults := productStage(t, fake)

	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
	_, err = readResults()
	assert.True(t, os.IsNotExist(err))
}

func TestProductsNumericProductID(t *testing.T) {
	fake := &fakeService{
		createFn: func(string, api.ProductPayload) (map[string]any, error) {
			return map[string]any{"productId": float64(4217)}, nil
		},
	}
	stage, readResults := productStage(t, fake)

	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	mappings, err := readResults()
	require.NoError(t, err)
	assert.Equal(t, "4217", mappings[0].ProductID)
}

func TestProductsDryRunMakesNoRemoteCalls(t *testing.T) {
	fake := &fakeService{}
	stage, _ := productStage(t, fake)

	var out bytes.Buffer
	result, err := stage.Run(context.Background(), Options{Out: &out})
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 0, result.Created)
	assert.Contains(t, out.String(), "alice@example.com")
}

func TestProductsUnknownLoginErrorIsFatal(t *testing.T) {
	fake := &fakeService{
		loginFn: func(email, password string) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	stage, _ := productStage(t, fake)

	_, err := stage.Run(context.Background(), Options{Execute: true, Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.NotContains(t, fake.calls, "register:alice@example.com")
}

func TestDisplayNameFromEmail(t *testing.T) {
	assert.Equal(t, "Alice Ng", displayNameFromEmail("alice.ng@example.com"))
	assert.Equal(t, "Seed Seller", displayNameFromEmail("seed-seller@koalaswap.local"))
}
