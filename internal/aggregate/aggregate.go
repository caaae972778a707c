// Package aggregate folds accepted feature records into run statistics.
package aggregate

import (
	"sort"
	"time"

	"github.com/freeeve/chessgraph/features/internal/features"
)

// Outcome labels in report order.
const (
	OutcomeWhiteWins = "White Wins"
	OutcomeBlackWins = "Black Wins"
	OutcomeDraws     = "Draws"
)

// DateFormat is the processed_date layout.
const DateFormat = "2006-01-02 15:04:05"

// TopECOCount is how many opening codes the report keeps.
const TopECOCount = 10

var outcomeLabels = [3]string{
	features.ClassWhiteWins: OutcomeWhiteWins,
	features.ClassBlackWins: OutcomeBlackWins,
	features.ClassDraw:      OutcomeDraws,
}

// RatingSummary is min/max/mean over one rating list; all zero when empty.
type RatingSummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// RatingStats holds the three rating summaries.
type RatingStats struct {
	White RatingSummary `json:"white"`
	Black RatingSummary `json:"black"`
	Total RatingSummary `json:"total"`
}

// Stats is the aggregate report over all accepted records.
type Stats struct {
	TotalGames    int                 `json:"total_games"`
	Outcomes      OrderedMap[int]     `json:"outcomes"`
	Percentages   OrderedMap[float64] `json:"percentages"`
	RatingStats   RatingStats         `json:"rating_stats"`
	TopECOCodes   OrderedMap[int]     `json:"top_eco_codes"`
	ProcessedDate string              `json:"processed_date"`
}

// Aggregator keeps running counters. It is not safe for concurrent use.
type Aggregator struct {
	total    int
	outcomes [3]int
	white    ratingAcc
	black    ratingAcc
	combined ratingAcc
	ecoCount map[string]int
	ecoOrder []string
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{ecoCount: make(map[string]int)}
}

// Add folds one accepted record into the counters.
func (a *Aggregator) Add(rec *features.Record) {
	a.total++
	if rec.ResultClass >= 0 && rec.ResultClass < len(a.outcomes) {
		a.outcomes[rec.ResultClass]++
	}

	if rec.WhiteElo > 0 {
		a.white.add(float64(rec.WhiteElo))
	}
	if rec.BlackElo > 0 {
		a.black.add(float64(rec.BlackElo))
	}
	if rec.WhiteElo > 0 && rec.BlackElo > 0 {
		a.combined.add(float64(rec.WhiteElo+rec.BlackElo) / 2)
	}

	if rec.ECO != "" {
		if _, seen := a.ecoCount[rec.ECO]; !seen {
			a.ecoOrder = append(a.ecoOrder, rec.ECO)
		}
		a.ecoCount[rec.ECO]++
	}
}

// Total returns the number of records added.
func (a *Aggregator) Total() int {
	return a.total
}

// Stats finalizes the counters into a report stamped with now.
func (a *Aggregator) Stats(now time.Time) Stats {
	s := Stats{
		TotalGames: a.total,
		RatingStats: RatingStats{
			White: a.white.summary(),
			Black: a.black.summary(),
			Total: a.combined.summary(),
		},
		TopECOCodes:   a.topECO(TopECOCount),
		ProcessedDate: now.Format(DateFormat),
	}
	for class, label := range outcomeLabels {
		n := a.outcomes[class]
		pct := 0.0
		if a.total > 0 {
			pct = float64(n) / float64(a.total) * 100
		}
		s.Outcomes = append(s.Outcomes, Entry[int]{Key: label, Value: n})
		s.Percentages = append(s.Percentages, Entry[float64]{Key: label, Value: pct})
	}
	return s
}

// topECO ranks codes by descending count; ties keep first-seen order.
func (a *Aggregator) topECO(n int) OrderedMap[int] {
	codes := make([]string, len(a.ecoOrder))
	copy(codes, a.ecoOrder)
	sort.SliceStable(codes, func(i, j int) bool {
		return a.ecoCount[codes[i]] > a.ecoCount[codes[j]]
	})
	if len(codes) > n {
		codes = codes[:n]
	}
	top := OrderedMap[int]{}
	for _, c := range codes {
		top = append(top, Entry[int]{Key: c, Value: a.ecoCount[c]})
	}
	return top
}

// ratingAcc tracks min/max/sum of a rating list without retaining it.
type ratingAcc struct {
	n        int
	min, max float64
	sum      float64
}

func (r *ratingAcc) add(x float64) {
	if r.n == 0 || x < r.min {
		r.min = x
	}
	if r.n == 0 || x > r.max {
		r.max = x
	}
	r.n++
	r.sum += x
}

func (r *ratingAcc) summary() RatingSummary {
	if r.n == 0 {
		return RatingSummary{}
	}
	return RatingSummary{Min: r.min, Max: r.max, Avg: r.sum / float64(r.n)}
}
