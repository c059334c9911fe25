package resolver

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vastra-munim/internal/domain/customer"
	"github.com/vastra-munim/internal/domain/inventory"
	"github.com/vastra-munim/internal/similarity"
)

const (
	// candidatePoolSize bounds how many rows fuzzy matching scores per lookup
	candidatePoolSize = 25
	// ambiguityWindow is the score gap under which two candidates are
	// considered indistinguishable and the sender must choose
	ambiguityWindow = 0.03
	// maxClarificationChoices caps the options offered in one prompt
	maxClarificationChoices = 3
)

// resolveCustomer fuzzy-matches a spoken name against active customers.
// Returns exactly one of: a match, a candidate list (near-equal scores), or
// neither (no candidate cleared the similarity floor). Candidate pools come
// back most-recently-transacted first, so on equal scores the customer the
// shop dealt with last wins.
func (r *Resolver) resolveCustomer(ctx context.Context, name string) (*customer.Customer, []Candidate, error) {
	query := similarity.Normalize(name)
	if query == "" {
		return nil, nil, nil
	}

	pool, err := r.customers.SearchByName(ctx, firstWord(query), candidatePoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search customers: %w", err)
	}
	if len(pool) == 0 {
		// Misspellings defeat the ILIKE narrowing; score the full pool
		pool, err = r.customers.SearchByName(ctx, "", candidatePoolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to search customers: %w", err)
		}
	}

	var (
		best      *customer.Customer
		bestScore float64
		scored    []scoredCustomer
	)
	for _, c := range pool {
		score := r.scorer.Score(query, similarity.Normalize(c.Name))
		if score < r.policy.SimilarityFloor {
			continue
		}
		scored = append(scored, scoredCustomer{c, score})
		// Strictly greater keeps the earlier (more recent) candidate on ties
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil {
		return nil, nil, nil
	}

	var rivals []Candidate
	for _, sc := range scored {
		if sc.customer.ID != best.ID && bestScore-sc.score <= ambiguityWindow {
			rivals = append(rivals, Candidate{ID: sc.customer.ID, Label: sc.customer.Name})
		}
	}
	if len(rivals) > 0 {
		candidates := append([]Candidate{{ID: best.ID, Label: best.Name}}, rivals...)
		if len(candidates) > maxClarificationChoices {
			candidates = candidates[:maxClarificationChoices]
		}
		return nil, candidates, nil
	}

	return best, nil, nil
}

type scoredCustomer struct {
	customer *customer.Customer
	score    float64
}

// resolveItem fuzzy-matches a color/fabric pair against inventory variants.
// A stated width narrows the pool to exact-width variants when any exist.
func (r *Resolver) resolveItem(ctx context.Context, fabricType, color string, width int) (*inventory.Item, []Candidate, error) {
	query := similarity.Normalize(strings.TrimSpace(color + " " + fabricType))
	if query == "" {
		return nil, nil, nil
	}

	pool, err := r.items.SearchByAttributes(ctx, fabricType, color, candidatePoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search inventory: %w", err)
	}
	if len(pool) == 0 {
		pool, err = r.items.SearchByAttributes(ctx, "", "", candidatePoolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to search inventory: %w", err)
		}
	}

	if width > 0 {
		var exact []*inventory.Item
		for _, it := range pool {
			if it.Width == width {
				exact = append(exact, it)
			}
		}
		if len(exact) > 0 {
			pool = exact
		}
	}

	var (
		best      *inventory.Item
		bestScore float64
		scored    []scoredItem
	)
	for _, it := range pool {
		score := r.scorer.Score(query, similarity.Normalize(it.Color+" "+it.FabricType))
		if score < r.policy.SimilarityFloor {
			continue
		}
		scored = append(scored, scoredItem{it, score})
		if best == nil || score > bestScore {
			best, bestScore = it, score
		}
	}
	if best == nil {
		return nil, nil, nil
	}

	var rivals []Candidate
	for _, sc := range scored {
		if sc.item.ID != best.ID && bestScore-sc.score <= ambiguityWindow {
			rivals = append(rivals, Candidate{ID: sc.item.ID, Label: sc.item.DisplayName()})
		}
	}
	if len(rivals) > 0 {
		candidates := append([]Candidate{{ID: best.ID, Label: best.DisplayName()}}, rivals...)
		if len(candidates) > maxClarificationChoices {
			candidates = candidates[:maxClarificationChoices]
		}
		return nil, candidates, nil
	}

	return best, nil, nil
}

type scoredItem struct {
	item  *inventory.Item
	score float64
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

// parseRupees converts a spoken amount to paise. Accepts "5000", "₹5,000",
// "rs 5000", "5000.50 rupaye" and the like.
func parseRupees(raw string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, noise := range []string{"₹", "rs.", "rs", "rupees", "rupaye", "rupaiya", "/-", ","} {
		s = strings.ReplaceAll(s, noise, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no amount in %q", raw)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable amount %q: %w", raw, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %q", raw)
	}

	return int64(math.Round(value * 100)), nil
}

// parseQuantity extracts a positive integer quantity, tolerating a trailing
// unit word ("300 meter")
func parseQuantity(raw string) (int64, error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return 0, fmt.Errorf("no quantity in %q", raw)
	}

	n, err := strconv.ParseInt(strings.TrimSuffix(fields[0], "m"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable quantity %q: %w", raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %q", raw)
	}
	return n, nil
}

// parseWidth extracts a width in inches from slot text like `44"` or
// "44 inch". Zero means no usable width.
func parseWidth(raw string) int {
	s := strings.TrimSpace(strings.ToLower(raw))
	for _, suffix := range []string{`"`, "inches", "inch", "in"} {
		s = strings.TrimSuffix(s, suffix)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
