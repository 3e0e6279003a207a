// Package seedprep turns the raw dataset into validated, cross-referenced
// seed snapshots. It is the sole writer of snapshot and metadata artifacts;
// import stages only read them.
package seedprep

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lukman83/koalaswap-seed/config"
	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/metadata"
	"github.com/lukman83/koalaswap-seed/internal/normalize"
	"github.com/lukman83/koalaswap-seed/internal/pipeline"
	"github.com/lukman83/koalaswap-seed/internal/snapshot"
)

// UnmappedCategoryID is the sentinel for labels with no mapping in the
// target system. Products carrying it are surfaced in the summary for
// human review instead of blocking preparation.
const UnmappedCategoryID = 0

// knownCategories seeds the mapping with labels the target system already
// has ids for.
var knownCategories = map[string]int{
	"Smart Phones": 1011,
}

// RecordError reports a product that failed normalization. It aborts the
// whole preparation run so a snapshot file, if present, is always
// internally consistent.
type RecordError struct {
	ProductID string
	Err       error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("product %s failed validation: %v", e.ProductID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Summary reports what a preparation run produced.
type Summary struct {
	RunID              string         `json:"run_id"`
	SchemaVersion      int            `json:"schema_version"`
	DatasetPart        string         `json:"dataset_part"`
	UsersTotal         int            `json:"users_total"`
	ProductsTotal      int            `json:"products_total"`
	PlaceholderSellers int            `json:"placeholder_sellers"`
	Categories         map[string]int `json:"categories"`
	UnmappedCategories []string       `json:"unmapped_categories,omitempty"`
}

// Preparer orchestrates loading, normalization, placeholder reconciliation
// and snapshot generation.
type Preparer struct {
	cfg    *config.Config
	loader *dataset.Loader
	store  *metadata.Store
	rng    *rand.Rand
	log    *slog.Logger
}

// New creates a Preparer. The random source is seeded from the configured
// seed so free-shipping draws reproduce exactly between runs.
func New(cfg *config.Config, log *slog.Logger) *Preparer {
	return &Preparer{
		cfg:    cfg,
		loader: dataset.NewLoader(cfg),
		store:  metadata.NewStore(cfg),
		rng:    rand.New(rand.NewSource(cfg.RandomSeed)),
		log:    log,
	}
}

// Run executes the full preparation pipeline and persists all artifacts.
// Any normalization failure aborts before either snapshot is written.
func (p *Preparer) Run(ctx context.Context) (*Summary, error) {
	pipeline.ReportProgress(ctx, "loading dataset...")
	users, err := p.loader.LoadUsers(p.cfg.IncludeSupplement)
	if err != nil {
		return nil, err
	}
	products, err := p.loader.LoadProducts(p.cfg.DatasetPart)
	if err != nil {
		return nil, err
	}
	p.log.Info("dataset loaded", "users", len(users), "products", len(products), "part", p.cfg.DatasetPart)

	if err := p.persistUserMetadata(users); err != nil {
		return nil, err
	}

	pipeline.ReportProgress(ctx, "reconciling placeholder sellers...")
	placeholders, err := p.collectPlaceholderSellers(users, products)
	if err != nil {
		return nil, err
	}
	if err := p.store.SavePlaceholderSellers(placeholders); err != nil {
		return nil, err
	}

	categoryMapping, err := p.buildCategoryMapping(products)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveCategoryMapping(categoryMapping); err != nil {
		return nil, err
	}

	// Build both snapshots in memory before writing anything, so a bad
	// record never leaves a partial artifact behind.
	pipeline.ReportProgress(ctx, "normalizing products...")
	userEntries := p.userSeedEntries(users, placeholders)
	productEntries, err := p.productSeedEntries(products, users, placeholders, categoryMapping)
	if err != nil {
		return nil, err
	}

	pipeline.ReportProgress(ctx, "writing snapshots...")
	if err := snapshot.WriteUsers(p.cfg.OutputFile("user_seed_snapshot.json"), userEntries); err != nil {
		return nil, err
	}
	if err := snapshot.WriteProducts(p.cfg.OutputFile("product_seed_snapshot.json"), productEntries); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:              uuid.NewString(),
		SchemaVersion:      snapshot.SchemaVersion,
		DatasetPart:        p.cfg.DatasetPart,
		UsersTotal:         len(users),
		ProductsTotal:      len(products),
		PlaceholderSellers: len(placeholders),
		Categories:         categoryHistogram(products),
		UnmappedCategories: unmappedLabels(categoryMapping, products),
	}
	for _, label := range summary.UnmappedCategories {
		p.log.Warn("category has no mapping, products will use the unmapped sentinel", "category", label)
	}
	if err := metadata.WriteJSON(p.cfg.OutputFile("summary.json"), summary); err != nil {
		return nil, err
	}
	p.log.Info("preparation complete",
		"run_id", summary.RunID,
		"users", summary.UsersTotal,
		"products", summary.ProductsTotal,
		"placeholders", summary.PlaceholderSellers)
	return summary, nil
}

func (p *Preparer) persistUserMetadata(users map[string]dataset.UserRecord) error {
	meta := make(map[string]metadata.UserMetadata, len(users))
	for id, u := range users {
		meta[id] = metadata.UserMetadata{
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		}
	}
	return p.store.SaveUserMetadata(meta)
}

// collectPlaceholderSellers resolves an identity for every seller id
// referenced by a product but absent from the user set. Persisted
// identities are reused verbatim; new ones are derived deterministically
// from the seller id prefix. Seller ids are processed in sorted order so
// discovery order reproduces between runs.
func (p *Preparer) collectPlaceholderSellers(users map[string]dataset.UserRecord, products []dataset.ProductRecord) ([]metadata.PlaceholderSeller, error) {
	persisted, err := p.store.LoadPlaceholderSellers()
	if err != nil {
		return nil, err
	}

	var placeholders []metadata.PlaceholderSeller
	for _, sellerID := range dataset.SellerIDs(products) {
		if _, known := users[sellerID]; known {
			continue
		}
		if existing, ok := persisted[sellerID]; ok {
			placeholders = append(placeholders, existing)
			continue
		}
		prefix := sellerID
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		placeholders = append(placeholders, metadata.PlaceholderSeller{
			SellerID:    sellerID,
			Email:       fmt.Sprintf("seed-seller+%s@koalaswap.local", prefix),
			DisplayName: fmt.Sprintf("Seed Seller %s", strings.ToUpper(prefix)),
			Password:    p.cfg.DefaultPassword,
		})
	}
	return placeholders, nil
}

// buildCategoryMapping extends the persisted label mapping with newly
// observed labels. Previously resolved entries stay as they are; unknown
// labels get the unmapped sentinel rather than failing.
func (p *Preparer) buildCategoryMapping(products []dataset.ProductRecord) (map[string]int, error) {
	mapping, err := p.store.LoadCategoryMapping()
	if err != nil {
		return nil, err
	}
	for label, id := range knownCategories {
		if _, ok := mapping[label]; !ok {
			mapping[label] = id
		}
	}
	labels := make(map[string]bool)
	for _, prod := range products {
		if prod.Category != "" {
			labels[prod.Category] = true
		}
	}
	for label := range labels {
		if _, ok := mapping[label]; !ok {
			mapping[label] = UnmappedCategoryID
		}
	}
	return mapping, nil
}

// userSeedEntries emits primary users sorted by email, then placeholder
// sellers in their (already sorted) discovery order.
func (p *Preparer) userSeedEntries(users map[string]dataset.UserRecord, placeholders []metadata.PlaceholderSeller) []snapshot.UserEntry {
	primary := make([]dataset.UserRecord, 0, len(users))
	for _, u := range users {
		primary = append(primary, u)
	}
	sort.Slice(primary, func(i, j int) bool { return primary[i].Email < primary[j].Email })

	entries := make([]snapshot.UserEntry, 0, len(primary)+len(placeholders))
	for _, u := range primary {
		entries = append(entries, snapshot.UserEntry{
			UserID:        u.ID,
			Email:         u.Email,
			DisplayName:   u.DisplayName,
			Password:      p.cfg.DefaultPassword,
			PhoneVerified: boolExtra(u.Extra, "phone_verified", false),
			EmailVerified: boolExtra(u.Extra, "email_verified", true),
			RatingAvg:     floatExtra(u.Extra, "rating_avg"),
			RatingCount:   int(floatExtra(u.Extra, "rating_count")),
			MemberSince:   stringExtra(u.Extra, "member_since"),
			Source:        snapshot.SourcePrimary,
		})
	}
	for _, ph := range placeholders {
		entries = append(entries, snapshot.UserEntry{
			UserID:        ph.SellerID,
			Email:         ph.Email,
			DisplayName:   ph.DisplayName,
			Password:      ph.Password,
			EmailVerified: true,
			Source:        snapshot.SourcePlaceholder,
		})
	}
	return entries
}

func (p *Preparer) productSeedEntries(
	products []dataset.ProductRecord,
	users map[string]dataset.UserRecord,
	placeholders []metadata.PlaceholderSeller,
	categoryMapping map[string]int,
) ([]snapshot.ProductEntry, error) {
	sellerEmails := make(map[string]string, len(users)+len(placeholders))
	for id, u := range users {
		sellerEmails[id] = u.Email
	}
	for _, ph := range placeholders {
		sellerEmails[ph.SellerID] = ph.Email
	}

	entries := make([]snapshot.ProductEntry, 0, len(products))
	for _, prod := range products {
		condition, err := normalize.NormalizeCondition(prod.Condition)
		if err != nil {
			return nil, &RecordError{ProductID: prod.ID, Err: err}
		}
		price, err := normalize.NormalizePrice(prod.Price, prod.OriginalText, p.cfg.PriceExchangeRate)
		if err != nil {
			return nil, &RecordError{ProductID: prod.ID, Err: err}
		}

		freeShipping := p.rng.Float64() < p.cfg.FreeShippingProbability

		entries = append(entries, snapshot.ProductEntry{
			ProductID:    prod.ID,
			SellerID:     prod.SellerID,
			SellerEmail:  sellerEmails[prod.SellerID],
			Title:        prod.Title,
			Description:  prod.Description,
			PriceAUD:     price.Amount(),
			PriceCents:   int64(price),
			Condition:    string(condition),
			CategoryID:   categoryMapping[prod.Category],
			FreeShipping: freeShipping,
			Images:       prod.Images,
			ImageCount:   len(prod.Images),
			DatasetPart:  p.cfg.DatasetPart,
		})
	}
	return entries, nil
}

func categoryHistogram(products []dataset.ProductRecord) map[string]int {
	hist := make(map[string]int)
	for _, prod := range products {
		hist[prod.Category]++
	}
	return hist
}

func unmappedLabels(mapping map[string]int, products []dataset.ProductRecord) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, prod := range products {
		if prod.Category == "" || seen[prod.Category] {
			continue
		}
		seen[prod.Category] = true
		if mapping[prod.Category] == UnmappedCategoryID {
			labels = append(labels, prod.Category)
		}
	}
	sort.Strings(labels)
	return labels
}

func boolExtra(extra map[string]any, key string, fallback bool) bool {
	if v, ok := extra[key].(bool); ok {
		return v
	}
	return fallback
}

func floatExtra(extra map[string]any, key string) float64 {
	if v, ok := extra[key].(float64); ok {
		return v
	}
	return 0
}

func stringExtra(extra map[string]any, key string) *string {
	if v, ok := extra[key].(string); ok && v != "" {
		return &v
	}
	return nil
}
