// Package report summarises a finished test batch.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/risklab/internal/core"
)

// RiskLevelKey is the actual_output field counted by the risk level chart.
const RiskLevelKey = "risk_level"

// executionTimeBuckets are the upper bounds, in milliseconds, of the
// execution time histogram. A final open bucket catches the rest.
var executionTimeBuckets = []int64{10, 50, 100, 250, 500, 1000, 5000}

// Report is the generated summary of one batch.
type Report struct {
	BatchID    int64           `json:"batch_id"`
	Summary    Summary         `json:"summary"`
	Statistics Statistics      `json:"statistics"`
	ChartsData Charts          `json:"charts_data"`
	TestCases  []core.TestCase `json:"test_cases"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Summary repeats the batch header.
type Summary struct {
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Status      core.BatchStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
}

// Statistics aggregates case outcomes. Cases without an execution time
// count as 0 ms.
type Statistics struct {
	TotalCases       int     `json:"total_cases"`
	PassedCases      int     `json:"passed_cases"`
	FailedCases      int     `json:"failed_cases"`
	ErrorCases       int     `json:"error_cases"`
	AvgExecutionTime float64 `json:"avg_execution_time"`
	MaxExecutionTime int64   `json:"max_execution_time"`
	MinExecutionTime int64   `json:"min_execution_time"`
}

// Charts holds series for the UI to draw. A chart with no data is omitted.
type Charts struct {
	ResultsDistribution       []Slice  `json:"results_distribution,omitempty"`
	RiskLevelDistribution     []Slice  `json:"risk_level_distribution,omitempty"`
	ExecutionTimeDistribution []Bucket `json:"execution_time_distribution,omitempty"`
}

// Slice is one labelled count.
type Slice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Bucket counts executions with UpperMs of the previous bucket < t <= UpperMs.
// The last bucket has UpperMs 0 and is unbounded.
type Bucket struct {
	Label   string `json:"label"`
	UpperMs int64  `json:"upper_ms"`
	Count   int    `json:"count"`
}

// Generate builds the report for batch.
func Generate(batch *core.TestBatch, now time.Time) *Report {
	cases := batch.TestCases
	if cases == nil {
		cases = []core.TestCase{}
	}
	return &Report{
		BatchID: batch.ID,
		Summary: Summary{
			Name:        batch.Name,
			Description: batch.Description,
			Status:      batch.Status,
			CreatedAt:   batch.CreatedAt,
			UpdatedAt:   batch.UpdatedAt,
		},
		Statistics: statistics(cases),
		ChartsData: charts(cases),
		TestCases:  cases,
		CreatedAt:  now.UTC(),
	}
}

func statistics(cases []core.TestCase) Statistics {
	s := Statistics{TotalCases: len(cases)}
	if len(cases) == 0 {
		return s
	}

	var total int64
	s.MinExecutionTime = executionTime(cases[0])
	for _, c := range cases {
		switch c.Status {
		case core.CasePassed:
			s.PassedCases++
		case core.CaseFailed:
			s.FailedCases++
		case core.CaseError:
			s.ErrorCases++
		}
		ms := executionTime(c)
		total += ms
		s.MaxExecutionTime = max(s.MaxExecutionTime, ms)
		s.MinExecutionTime = min(s.MinExecutionTime, ms)
	}
	s.AvgExecutionTime = float64(total) / float64(len(cases))
	return s
}

func charts(cases []core.TestCase) Charts {
	var c Charts
	if len(cases) == 0 {
		return c
	}

	statuses := map[string]int{}
	levels := map[string]int{}
	var anyTime bool
	for _, tc := range cases {
		statuses[string(tc.Status)]++
		if level, ok := tc.ActualOutput[RiskLevelKey]; ok && level != nil {
			levels[fmt.Sprint(level)]++
		}
		if executionTime(tc) > 0 {
			anyTime = true
		}
	}

	c.ResultsDistribution = ranked(statuses)
	c.RiskLevelDistribution = ranked(levels)
	if anyTime {
		c.ExecutionTimeDistribution = histogram(cases)
	}
	return c
}

// ranked orders by count descending, then label.
func ranked(counts map[string]int) []Slice {
	if len(counts) == 0 {
		return nil
	}
	out := make([]Slice, 0, len(counts))
	for label, n := range counts {
		out = append(out, Slice{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func histogram(cases []core.TestCase) []Bucket {
	buckets := make([]Bucket, 0, len(executionTimeBuckets)+1)
	for _, upper := range executionTimeBuckets {
		buckets = append(buckets, Bucket{Label: fmt.Sprintf("<=%dms", upper), UpperMs: upper})
	}
	last := executionTimeBuckets[len(executionTimeBuckets)-1]
	buckets = append(buckets, Bucket{Label: fmt.Sprintf(">%dms", last)})

	for _, tc := range cases {
		ms := executionTime(tc)
		i := sort.Search(len(executionTimeBuckets), func(i int) bool { return ms <= executionTimeBuckets[i] })
		buckets[i].Count++
	}
	return buckets
}

func executionTime(c core.TestCase) int64 {
	if c.ExecutionTime == nil {
		return 0
	}
	return *c.ExecutionTime
}
