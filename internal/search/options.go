package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/relaymesh/collector/internal/source"
	"github.com/relaymesh/collector/internal/store"
)

// Default pagination values.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Options configures one search call. The zero value means: all sources,
// vector search, default limit, no filters.
type Options struct {
	// Sources restricts the fan-out. Empty means all seven.
	Sources []source.DataSource

	// Type is the retrieval strategy. Empty means vector.
	Type Type

	// Limit is the page size; Offset skips results after coalescing.
	Limit  int
	Offset int

	// Where holds equality predicates on flattened metadata. Only
	// primitive values (string, number, boolean) are honored.
	Where map[string]any

	// StartDate and EndDate bound createdAtTs, as "2006-01-02" dates.
	// EndDate is inclusive of the whole day.
	StartDate string
	EndDate   string

	// MinScore drops results scoring below it after boosts. 0 keeps all.
	MinScore float64
}

// normalize fills defaults and clamps pagination.
func (o *Options) normalize(defaultLimit, maxLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if len(o.Sources) == 0 {
		o.Sources = source.All
	}
	if o.Type == "" {
		o.Type = TypeVector
	}
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// whereClause builds the store predicate list from the equality map and the
// date bounds. Non-primitive where values are ignored silently.
func (o *Options) whereClause() (store.Where, error) {
	var where store.Where
	for field, value := range o.Where {
		switch value.(type) {
		case string, bool, float64, float32, int, int32, int64:
			where = append(where, store.Eq(field, value))
		}
	}

	if o.StartDate != "" {
		t, err := parseISODate(o.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate %q: %w", o.StartDate, err)
		}
		where = append(where, store.Gte("createdAtTs", float64(t.UnixMilli())))
	}
	if o.EndDate != "" {
		t, err := parseISODate(o.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate %q: %w", o.EndDate, err)
		}
		endOfDay := t.Add(24*time.Hour - time.Millisecond)
		where = append(where, store.Lte("createdAtTs", float64(endOfDay.UnixMilli())))
	}
	return where, nil
}

func parseISODate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

// queryTerms splits a query into lowercase whitespace-separated tokens.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	return fields
}
