package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report summarizes dataset quality ahead of preparation. Issues do not
// stop validation; the caller decides whether the dataset is importable.
type Report struct {
	UsersTotal    int `json:"users_total"`
	ProductsTotal int `json:"products_total"`

	MissingFields   []string `json:"missing_fields,omitempty"`
	DuplicateEmails []string `json:"duplicate_emails,omitempty"`
	MissingImages   []string `json:"missing_images,omitempty"`

	Categories map[string]int `json:"categories"`
	Conditions map[string]int `json:"conditions"`

	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`
	PriceAvg float64 `json:"price_avg"`

	ImagesTotal        int `json:"images_total"`
	MultiImageProducts int `json:"multi_image_products"`
}

// OK reports whether the dataset passed every check.
func (r *Report) OK() bool {
	return len(r.MissingFields) == 0 && len(r.DuplicateEmails) == 0 && len(r.MissingImages) == 0
}

// Validate loads both entity files and produces a quality report: missing
// user name fields, duplicate emails, category/condition distributions,
// price range, and image files absent from the images directory. The image
// scan is the only concurrent part: it is read-only, so the sequential
// pipeline constraint does not apply to it.
func (l *Loader) Validate(ctx context.Context, includeSupplement bool, part string) (*Report, error) {
	users, err := l.LoadUsers(includeSupplement)
	if err != nil {
		return nil, err
	}
	products, err := l.LoadProducts(part)
	if err != nil {
		return nil, err
	}

	report := &Report{
		UsersTotal:    len(users),
		ProductsTotal: len(products),
		Categories:    make(map[string]int),
		Conditions:    make(map[string]int),
	}

	seenEmails := make(map[string]string)
	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	for _, id := range userIDs {
		u := users[id]
		if u.Username == "" {
			report.MissingFields = append(report.MissingFields, fmt.Sprintf("user %s: missing username", id))
		}
		if u.FirstName == "" {
			report.MissingFields = append(report.MissingFields, fmt.Sprintf("user %s: missing first_name", id))
		}
		if u.LastName == "" {
			report.MissingFields = append(report.MissingFields, fmt.Sprintf("user %s: missing last_name", id))
		}
		if prev, dup := seenEmails[u.Email]; dup {
			report.DuplicateEmails = append(report.DuplicateEmails, fmt.Sprintf("%s (users %s, %s)", u.Email, prev, id))
		} else {
			seenEmails[u.Email] = id
		}
	}

	var priceSum float64
	for i, p := range products {
		if p.Category == "" {
			report.MissingFields = append(report.MissingFields, fmt.Sprintf("product %s: missing category", p.ID))
		} else {
			report.Categories[p.Category]++
		}
		report.Conditions[p.Condition]++
		if len(p.Images) == 0 {
			report.MissingFields = append(report.MissingFields, fmt.Sprintf("product %s: no images", p.ID))
		} else {
			report.ImagesTotal += len(p.Images)
			if len(p.Images) > 1 {
				report.MultiImageProducts++
			}
		}
		price := float64(p.Price)
		priceSum += price
		if i == 0 || price < report.PriceMin {
			report.PriceMin = price
		}
		if price > report.PriceMax {
			report.PriceMax = price
		}
	}
	if len(products) > 0 {
		report.PriceAvg = priceSum / float64(len(products))
	}

	missing, err := l.scanImageFiles(ctx, products)
	if err != nil {
		return nil, err
	}
	report.MissingImages = missing

	return report, nil
}

// scanImageFiles stats every referenced image file with bounded concurrency
// and returns the missing ones in deterministic order.
func (l *Loader) scanImageFiles(ctx context.Context, products []ProductRecord) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	var mu sync.Mutex
	var missing []string

	for _, p := range products {
		for _, img := range p.Images {
			productID, filename := p.ID, img.Filename
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := os.Stat(filepath.Join(l.cfg.ImagesDir, filename)); os.IsNotExist(err) {
					mu.Lock()
					missing = append(missing, fmt.Sprintf("product %s: %s", productID, filename))
					mu.Unlock()
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(missing)
	return missing, nil
}
