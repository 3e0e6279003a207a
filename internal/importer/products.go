package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/api"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

// registrationSettleWait bridges the gap between a fresh registration and
// the backend's asynchronous verification before the second login attempt.
const registrationSettleWait = time.Second

// BootstrapError means the login→register→login cycle was exhausted and
// the account still needs email verification the pipeline cannot perform
// itself.
type BootstrapError struct {
	Email string
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("user %s requires email verification; run `koalaseed verify-emails` against the backend database and retry", e.Email)
}

// Products creates one remote product per snapshot entry, grouped by
// seller, and records the dataset→remote id mapping the image stage joins
// on.
type Products struct {
	cfg        *config.Config
	client     Service
	log        *slog.Logger
	settleWait time.Duration
}

// NewProducts creates the product import stage.
func NewProducts(cfg *config.Config, client Service, log *slog.Logger) *Products {
	return &Products{cfg: cfg, client: client, log: log, settleWait: registrationSettleWait}
}

// ProductsResult reports what a product import run did.
type ProductsResult struct {
	Total   int
	Created int
	Sellers int
}

// Run imports the product seed snapshot.
func (p *Products) Run(ctx context.Context, opts Options) (*ProductsResult, error) {
	products, err := p.loadProducts()
	if err != nil {
		return nil, err
	}
	credentials, err := loadSellerCredentials(p.cfg)
	if err != nil {
		return nil, err
	}

	bySeller := make(map[string][]snapshot.ProductEntry)
	for _, entry := range products {
		bySeller[entry.SellerID] = append(bySeller[entry.SellerID], entry)
	}
	sellerIDs := make([]string, 0, len(bySeller))
	for id := range bySeller {
		sellerIDs = append(sellerIDs, id)
	}
	sort.Strings(sellerIDs)

	p.log.Info("prepared products for import", "products", len(products), "sellers", len(sellerIDs))

	if !opts.Execute {
		fmt.Fprintln(opts.out(), "Dry run: previewing first 3 product payloads")
		for i, entry := range products {
			if i >= 3 {
				break
			}
			fmt.Fprintf(opts.out(), "  %s  seller=%s  price=%.2f  free_shipping=%t  images=%d\n",
				entry.ProductID, entry.SellerEmail, entry.PriceAUD, entry.FreeShipping, entry.ImageCount)
		}
		return &ProductsResult{Total: len(products), Sellers: len(sellerIDs)}, nil
	}

	result := &ProductsResult{Total: len(products), Sellers: len(sellerIDs)}
	batch := opts.batch(10)
	var results []snapshot.ImportResult

	for _, sellerID := range sellerIDs {
		credential, ok := credentials[sellerID]
		if !ok {
			return result, fmt.Errorf("missing user credentials for seller %s", sellerID)
		}
		token, err := p.authenticate(ctx, credential)
		if err != nil {
			return result, err
		}

		items := bySeller[sellerID]
		for i, entry := range items {
			pipeline.ReportProgress(ctx, fmt.Sprintf("seller %s: product %d/%d", credential.email, i+1, len(items)))
			remoteID, err := p.createProduct(ctx, token, entry)
			if err != nil {
				return result, err
			}
			results = append(results, snapshot.ImportResult{
				DatasetProductID: entry.ProductID,
				ProductID:        remoteID,
				SellerID:         sellerID,
			})
			result.Created++
			if (i+1)%batch == 0 {
				p.log.Info("seller import progress",
					"seller", credential.email, "done", i+1, "total", len(items))
			}
		}
	}

	if err := snapshot.WriteResults(p.cfg.OutputFile("product_import_results.json"), results); err != nil {
		return result, err
	}
	fmt.Fprintf(opts.out(), "Imported %d products across %d sellers, mapping saved to %s\n",
		result.Created, result.Sellers, p.cfg.OutputFile("product_import_results.json"))
	return result, nil
}

// authenticate logs a seller in, falling back to registration plus a
// settle wait and a second login when the account is missing or not yet
// verified. No product call is issued for a seller until this succeeds.
func (p *Products) authenticate(ctx context.Context, credential sellerCredentials) (string, error) {
	token, err := p.client.Login(ctx, credential.email, credential.password)
	if err == nil {
		return token, nil
	}
	switch api.ClassifyRemoteError(err) {
	case api.ClassBadCredentials, api.ClassUnverifiedEmail:
	default:
		return "", fmt.Errorf("login %s: %w", credential.email, err)
	}

	p.log.Info("login failed, attempting registration", "email", credential.email)
	if _, err := p.client.RegisterUser(ctx, api.RegisterRequest{
		Email:       credential.email,
		Password:    credential.password,
		DisplayName: displayNameFromEmail(credential.email),
	}); err != nil && api.ClassifyRemoteError(err) != api.ClassDuplicateEmail {
		return "", fmt.Errorf("register %s: %w", credential.email, err)
	}

	select {
	case <-time.After(p.settleWait):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	token, err = p.client.Login(ctx, credential.email, credential.password)
	if err != nil {
		if api.ClassifyRemoteError(err) == api.ClassUnverifiedEmail {
			p.log.Warn("account still unverified after registration", "email", credential.email)
			return "", &BootstrapError{Email: credential.email}
		}
		return "", fmt.Errorf("login %s after registration: %w", credential.email, err)
	}
	return token, nil
}

// createProduct issues one authenticated create call and extracts the
// remote id. A created-but-unidentified record cannot be joined for image
// upload, so a missing id is fatal.
func (p *Products) createProduct(ctx context.Context, token string, entry snapshot.ProductEntry) (string, error) {
	response, err := p.client.CreateProduct(ctx, token, api.ProductPayload{
		Title:        entry.Title,
		Description:  entry.Description,
		Price:        entry.PriceAUD,
		Currency:     "AUD",
		CategoryID:   entry.CategoryID,
		Condition:    entry.Condition,
		FreeShipping: entry.FreeShipping,
	})
	if err != nil {
		return "", fmt.Errorf("create product %s: %w", entry.ProductID, err)
	}
	for _, key := range []string{"id", "productId"} {
		switch v := response[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return fmt.Sprintf("%.0f", v), nil
		}
	}
	return "", fmt.Errorf("create product %s: response missing id field", entry.ProductID)
}

func (p *Products) loadProducts() ([]snapshot.ProductEntry, error) {
	path := p.cfg.OutputFile("product_seed_snapshot.json")
	entries, err := snapshot.ReadProducts(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("product_seed_snapshot.json not found, run `prepare` before importing products")
	}
	return entries, err
}

// displayNameFromEmail derives a readable display name from the local part
// of an email address.
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '+' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
