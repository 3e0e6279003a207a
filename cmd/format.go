package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lukman83/koalaswap-seed/internal/dataset"
	"github.com/lukman83/koalaswap-seed/internal/seedprep"
)

// printSummary renders a preparation run summary in a human-friendly
// layout.
func printSummary(out io.Writer, s *seedprep.Summary) {
	fmt.Fprintf(out, "Preparation run %s complete (part=%s)\n", s.RunID, s.DatasetPart)
	fmt.Fprintf(out, "  Users:               %d\n", s.UsersTotal)
	fmt.Fprintf(out, "  Products:            %d\n", s.ProductsTotal)
	fmt.Fprintf(out, "  Placeholder sellers: %d\n", s.PlaceholderSellers)

	if len(s.Categories) > 0 {
		fmt.Fprintln(out, "  Categories:")
		for _, e := range sortedCounts(s.Categories) {
			fmt.Fprintf(out, "   %4d  %s\n", e.count, truncate(e.label, 50))
		}
	}
	if len(s.UnmappedCategories) > 0 {
		fmt.Fprintf(out, "  Unmapped categories (imported with sentinel id): %s\n",
			strings.Join(s.UnmappedCategories, ", "))
	}
}

// printReport renders a dataset validation report.
func printReport(out io.Writer, r *dataset.Report) {
	fmt.Fprintf(out, "Dataset: %d users, %d products, %d images (%d products with multiple images)\n",
		r.UsersTotal, r.ProductsTotal, r.ImagesTotal, r.MultiImageProducts)
	fmt.Fprintf(out, "  Price range: %s - %s AUD (avg %s)\n",
		formatAUD(r.PriceMin), formatAUD(r.PriceMax), formatAUD(r.PriceAvg))

	if len(r.Conditions) > 0 {
		fmt.Fprintln(out, "  Conditions:")
		for _, e := range sortedCounts(r.Conditions) {
			fmt.Fprintf(out, "   %4d  %s\n", e.count, e.label)
		}
	}
	if len(r.Categories) > 0 {
		fmt.Fprintln(out, "  Categories:")
		for _, e := range sortedCounts(r.Categories) {
			fmt.Fprintf(out, "   %4d  %s\n", e.count, truncate(e.label, 50))
		}
	}

	printIssues(out, "users with missing fields", r.MissingFields)
	printIssues(out, "duplicate emails", r.DuplicateEmails)
	printIssues(out, "missing image files", r.MissingImages)
	if r.OK() {
		fmt.Fprintln(out, "No issues found.")
	}
}

func printIssues(out io.Writer, label string, issues []string) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(out, "  %d %s:\n", len(issues), label)
	for _, issue := range issues {
		fmt.Fprintf(out, "    - %s\n", issue)
	}
}

type countEntry struct {
	label string
	count int
}

// sortedCounts orders a histogram by count descending, label ascending on
// ties.
func sortedCounts(m map[string]int) []countEntry {
	entries := make([]countEntry, 0, len(m))
	for label, count := range m {
		entries = append(entries, countEntry{label, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	return entries
}

// formatAUD formats a float dollar amount as "1,234.56".
func formatAUD(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]
	if len(whole) <= 3 {
		return whole + frac
	}
	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)
	return strings.Join(parts, ",") + frac
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
