package biometric

import (
	"fmt"
	"iter"
	"strings"
)

// Matching defaults.
const (
	DefaultMatchThreshold = 7
	DefaultToleranceCm    = 0.5
	DefaultQueryBandCm    = 0.1
)

// DedupPolicy decides how several templates enrolled under one name are scored.
type DedupPolicy int

const (
	// FirstRow scores only the first template seen for each name.
	FirstRow DedupPolicy = iota
	// BestRow scores every template and keeps the best count per name.
	BestRow
)

func (p DedupPolicy) String() string {
	switch p {
	case FirstRow:
		return "first"
	case BestRow:
		return "best"
	default:
		return fmt.Sprintf("DedupPolicy(%d)", int(p))
	}
}

// ParseDedupPolicy accepts "first" or "best".
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(s) {
	case "first", "":
		return FirstRow, nil
	case "best":
		return BestRow, nil
	}
	return 0, fmt.Errorf("unknown dedup policy %q", s)
}

// TiePolicy decides which accepted candidate wins.
type TiePolicy int

const (
	// LastWins picks the last accepted candidate in evaluation order.
	LastWins TiePolicy = iota
	// HighestCount picks the highest match count, then the smallest name.
	HighestCount
)

func (p TiePolicy) String() string {
	switch p {
	case LastWins:
		return "last"
	case HighestCount:
		return "highest"
	default:
		return fmt.Sprintf("TiePolicy(%d)", int(p))
	}
}

// ParseTiePolicy accepts "last" or "highest".
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch strings.ToLower(s) {
	case "last", "":
		return LastWins, nil
	case "highest":
		return HighestCount, nil
	}
	return 0, fmt.Errorf("unknown tie policy %q", s)
}

// MatchResult is the score of one candidate name.
type MatchResult struct {
	Name       string
	TemplateID string
	Count      int
	Accepted   bool
}

// Matcher scores live fingerprints against enrolled templates.
type Matcher struct {
	Threshold   int
	ToleranceCm float64
	Dedup       DedupPolicy
	Tie         TiePolicy
}

// NewMatcher creates a Matcher with the default threshold and tolerance.
func NewMatcher() *Matcher {
	return &Matcher{
		Threshold:   DefaultMatchThreshold,
		ToleranceCm: DefaultToleranceCm,
	}
}

// Count returns how many of the template's present segments lie strictly
// within ToleranceCm of the live fingerprint (meters).
func (m *Matcher) Count(live Fingerprint, t Template) int {
	n := 0
	for _, s := range Segments() {
		stored, ok := t.Value(s)
		if !ok {
			continue
		}
		detected := live[s] * 100
		if detected-m.ToleranceCm < stored && stored < detected+m.ToleranceCm {
			n++
		}
	}
	return n
}

// Identify scores every candidate and returns the accepted name, if any,
// together with the per-name results in first-seen order. An error from the
// candidate sequence aborts scoring.
func (m *Matcher) Identify(live Fingerprint, candidates iter.Seq2[Template, error]) (string, bool, []MatchResult, error) {
	var results []MatchResult
	index := make(map[string]int)

	for t, err := range candidates {
		if err != nil {
			return "", false, results, fmt.Errorf("read candidates: %w", err)
		}

		i, seen := index[t.Name]
		if seen && m.Dedup == FirstRow {
			continue
		}

		count := m.Count(live, t)
		if !seen {
			index[t.Name] = len(results)
			results = append(results, MatchResult{Name: t.Name, TemplateID: t.ID, Count: count})
			continue
		}
		if count > results[i].Count {
			results[i].Count = count
			results[i].TemplateID = t.ID
		}
	}

	for i := range results {
		results[i].Accepted = results[i].Count >= m.Threshold
	}

	name, ok := m.choose(results)
	return name, ok, results, nil
}

func (m *Matcher) choose(results []MatchResult) (string, bool) {
	var best *MatchResult
	for i := range results {
		r := &results[i]
		if !r.Accepted {
			continue
		}
		switch {
		case best == nil, m.Tie == LastWins:
			best = r
		case r.Count > best.Count, r.Count == best.Count && r.Name < best.Name:
			best = r
		}
	}
	if best == nil {
		return "", false
	}
	return best.Name, true
}

// Slice adapts a slice of templates to the candidate sequence Identify takes.
func Slice(templates []Template) iter.Seq2[Template, error] {
	return func(yield func(Template, error) bool) {
		for _, t := range templates {
			if !yield(t, nil) {
				return
			}
		}
	}
}
