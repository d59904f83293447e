// Package generator produces synthetic loan applications for strategy tests.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/newthinker/risklab/internal/core"
	"github.com/shopspring/decimal"
)

// PatternType selects how a field's values are drawn.
type PatternType string

const (
	RandomInt   PatternType = "random_int"
	RandomFloat PatternType = "random_float"
)

const (
	DefaultCount = 10
	MaxCount     = 10000
)

// maxIntBound keeps random_int ranges within int64 arithmetic.
const maxIntBound = float64(1 << 62)

// Pattern describes the range of one generated field. Bounds are inclusive.
type Pattern struct {
	Type PatternType `json:"type"`
	Min  float64     `json:"min"`
	Max  float64     `json:"max"`
	// Precision rounds random_float values to that many decimal places.
	Precision *int32 `json:"precision,omitempty"`
}

// Config is the generation request. Nil fields take their defaults.
type Config struct {
	Count            *int               `json:"count,omitempty"`
	DataPatterns     map[string]Pattern `json:"data_patterns,omitempty"`
	IncludeEdgeCases *bool              `json:"include_edge_cases,omitempty"`
}

// Case is one generated test input.
type Case struct {
	InputData map[string]any `json:"input_data"`
}

// DefaultPatterns returns the credit application fields generated when a
// request names none.
func DefaultPatterns() map[string]Pattern {
	return map[string]Pattern{
		"credit_score":  {Type: RandomInt, Min: 300, Max: 850},
		"loan_amount":   {Type: RandomFloat, Min: 1000, Max: 1000000},
		"annual_income": {Type: RandomFloat, Min: 10000, Max: 1000000},
	}
}

func (c Config) count() int {
	if c.Count == nil {
		return DefaultCount
	}
	return *c.Count
}

func (c Config) patterns() map[string]Pattern {
	if c.DataPatterns == nil {
		return DefaultPatterns()
	}
	return c.DataPatterns
}

func (c Config) edgeCases() bool {
	return c.IncludeEdgeCases == nil || *c.IncludeEdgeCases
}

// Validate checks counts and patterns.
func (c Config) Validate() error {
	if n := c.count(); n < 0 || n > MaxCount {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("count must be between 0 and %d, got %d", MaxCount, n))
	}
	for field, p := range c.patterns() {
		if err := p.validate(); err != nil {
			return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("pattern %q: %w", field, err))
		}
	}
	return nil
}

func (p Pattern) validate() error {
	switch p.Type {
	case RandomInt:
		if p.Min != math.Trunc(p.Min) || p.Max != math.Trunc(p.Max) {
			return fmt.Errorf("random_int bounds must be integers")
		}
		if math.Abs(p.Min) >= maxIntBound || math.Abs(p.Max) >= maxIntBound {
			return fmt.Errorf("random_int bounds must lie within ±2^62")
		}
	case RandomFloat:
		if p.Precision != nil && *p.Precision < 0 {
			return fmt.Errorf("precision cannot be negative")
		}
	default:
		return fmt.Errorf("unknown pattern type %q", p.Type)
	}
	if math.IsNaN(p.Min) || math.IsNaN(p.Max) || p.Min > p.Max {
		return fmt.Errorf("min %v must not exceed max %v", p.Min, p.Max)
	}
	return nil
}

// Generator draws values from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a generator seeded from the runtime's random source.
func New() *Generator {
	return NewSeeded(rand.Uint64(), rand.Uint64())
}

// NewSeeded creates a deterministic generator.
func NewSeeded(seed1, seed2 uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// Generate returns Count random cases followed, when edge cases are on, by a
// minimum and a maximum case for every field in name order. Fields not
// pinned to a bound in an edge case are drawn at random.
func (g *Generator) Generate(cfg Config) ([]Case, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	patterns := cfg.patterns()
	fields := make([]string, 0, len(patterns))
	for f := range patterns {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	g.mu.Lock()
	defer g.mu.Unlock()

	cases := make([]Case, 0, cfg.count()+2*len(fields))
	for range cfg.count() {
		cases = append(cases, Case{InputData: g.draw(fields, patterns)})
	}

	if cfg.edgeCases() {
		for _, field := range fields {
			p := patterns[field]

			minCase := g.draw(fields, patterns)
			minCase[field] = p.bound(p.Min)
			cases = append(cases, Case{InputData: minCase})

			maxCase := g.draw(fields, patterns)
			maxCase[field] = p.bound(p.Max)
			cases = append(cases, Case{InputData: maxCase})
		}
	}
	return cases, nil
}

func (g *Generator) draw(fields []string, patterns map[string]Pattern) map[string]any {
	row := make(map[string]any, len(fields))
	for _, f := range fields {
		row[f] = g.value(patterns[f])
	}
	return row
}

func (g *Generator) value(p Pattern) any {
	switch p.Type {
	case RandomInt:
		lo, hi := int64(p.Min), int64(p.Max)
		return lo + g.rnd.Int64N(hi-lo+1)
	default:
		v := p.round(p.Min + g.rnd.Float64()*(p.Max-p.Min))
		return math.Min(math.Max(v, p.Min), p.Max)
	}
}

// bound renders a range endpoint in the pattern's value type.
func (p Pattern) bound(v float64) any {
	if p.Type == RandomInt {
		return int64(v)
	}
	return p.round(v)
}

func (p Pattern) round(v float64) float64 {
	if p.Precision == nil {
		return v
	}
	return decimal.NewFromFloat(v).Round(*p.Precision).InexactFloat64()
}
