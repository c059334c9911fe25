// Package bulkorder parses free-form bulk order utterances into structured
// quantity groups. The parser is pure: it touches no store and resolves no
// entities; the resolver matches its groups against inventory afterwards.
//
// Supported shapes:
//
//	"1000 meter chahiye - 400 red silk, 300 blue cotton, 300 green poly"
//	"500m - 200 laal resham 44\", 300 neela suti"
//	"1000m total: 40% red silk, 30% blue cotton, 30% green polyester"
package bulkorder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Group is one extracted (quantity, color, fabric) triple. Quantities are
// integers in the item's native unit; percentage groups carry the computed
// quantity plus the stated percentage.
type Group struct {
	Quantity     int64
	Color        string
	FabricType   string
	Width        int // Inches, 0 when the utterance names none
	IsPercentage bool
	Percentage   int64
	Raw          string // Group text as uttered, for clarification replies
}

// Result is the parse outcome. A non-empty Discrepancy means the group
// quantities disagree with the declared total beyond tolerance; the parser
// reports the mismatch instead of adjusting anyone's numbers.
type Result struct {
	DeclaredTotal int64 // 0 when the utterance states no total
	Groups        []Group
	Discrepancy   string
}

var (
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:meter|mtr|m)\s*(?:chahiye|total|ka order)`),
		regexp.MustCompile(`total\s*:?\s*(\d+)\s*(?:meter|mtr|m)?`),
		regexp.MustCompile(`^(\d+)\s*(?:meter|mtr|m)\b`),
		regexp.MustCompile(`(\d+)\s*(?:meter|mtr|m)\s*[-–]`),
	}
	groupSplitPattern = regexp.MustCompile(`[,;]|\s+aur\s+|\s+and\s+|\s*\+\s*`)
	percentPattern    = regexp.MustCompile(`(\d+)\s*%`)
	quantityPattern   = regexp.MustCompile(`(\d+)\s*(?:meter|mtr|m)?\b`)
	widthPattern      = regexp.MustCompile(`(\d+)\s*(?:"|inch|in\b)`)
)

// Parser parses bulk order utterances with a configured sum tolerance
type Parser struct {
	tolerance int64 // Allowed |declared total - sum(groups)| in native units
}

func NewParser(tolerance int64) *Parser {
	return &Parser{tolerance: tolerance}
}

// Parse extracts the declared total and quantity groups from the utterance.
// An utterance yielding no groups at all returns an empty Result; callers
// treat that as unrecognized.
func (p *Parser) Parse(text string) Result {
	lower := strings.ToLower(text)

	total, totalEnd := extractTotal(lower)
	result := Result{DeclaredTotal: total}

	for _, part := range splitGroups(lower, totalEnd) {
		if g, ok := parseGroup(part, result.DeclaredTotal); ok {
			result.Groups = append(result.Groups, g)
		}
	}

	if len(result.Groups) == 0 {
		return result
	}

	if result.DeclaredTotal > 0 {
		var sum int64
		for _, g := range result.Groups {
			sum += g.Quantity
		}
		if diff := abs(result.DeclaredTotal - sum); diff > p.tolerance {
			result.Discrepancy = fmt.Sprintf(
				"declared total %d but groups sum to %d (difference %d)",
				result.DeclaredTotal, sum, diff,
			)
		}
	}

	return result
}

// extractTotal finds the declared total and where its phrase ends in the
// text, so the caller can drop the phrase (and any preamble before it) from
// group splitting
func extractTotal(text string) (int64, int) {
	for _, pattern := range totalPatterns {
		if loc := pattern.FindStringSubmatchIndex(text); loc != nil {
			total, err := strconv.ParseInt(text[loc[2]:loc[3]], 10, 64)
			if err == nil {
				return total, loc[1]
			}
		}
	}
	return 0, 0
}

// splitGroups cuts the utterance into group candidates. Everything through
// the total phrase is stripped only when a total was actually detected, so a
// bare leading quantity ("400 red silk, ...") keeps its number.
func splitGroups(text string, totalEnd int) []string {
	stripped := text
	if totalEnd > 0 {
		stripped = strings.TrimLeft(text[totalEnd:], " \t-:–")
	}

	var groups []string
	for _, part := range groupSplitPattern.Split(stripped, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			groups = append(groups, part)
		}
	}
	return groups
}

// parseGroup parses one group like `400 red silk 44"` or `40% laal resham`.
// A part naming neither color nor fabric is not a group (it is usually the
// leftover of the total phrase) and is dropped.
func parseGroup(text string, declaredTotal int64) (Group, bool) {
	g := Group{Raw: text}

	if m := percentPattern.FindStringSubmatch(text); m != nil {
		pct, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || pct <= 0 || pct > 100 {
			return Group{}, false
		}
		g.IsPercentage = true
		g.Percentage = pct
		g.Quantity = declaredTotal * pct / 100
	} else if m := quantityPattern.FindStringSubmatch(text); m != nil {
		qty, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || qty <= 0 {
			return Group{}, false
		}
		g.Quantity = qty
	} else {
		return Group{}, false
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	for _, w := range words {
		if g.Color == "" {
			if c, ok := colorLexicon[w]; ok {
				g.Color = c
				continue
			}
		}
		if g.FabricType == "" {
			if f, ok := fabricLexicon[w]; ok {
				g.FabricType = f
			}
		}
	}

	if m := widthPattern.FindStringSubmatch(text); m != nil {
		if w, err := strconv.Atoi(m[1]); err == nil {
			g.Width = w
		}
	}

	if g.Color == "" && g.FabricType == "" {
		return Group{}, false
	}

	return g, true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
