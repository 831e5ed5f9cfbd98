package ranking

import (
	"strconv"
	"strings"
	"time"

	"github.com/igusev/siterank/internal/model"
)

// ParseMaxAge parses the max-age request parameter
// Returns nil for empty, non-numeric (e.g. "all") or negative values, meaning "no window".
func ParseMaxAge(value string) *int {
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || days < 0 {
		return nil
	}
	return &days
}

// FilterByAge keeps only hits updated within maxAgeDays of now and recounts the total
// The boundary is inclusive. A nil or negative window leaves the result set untouched.
// After filtering Total is the post-filter count, not the index-wide count.
func FilterByAge(rs *model.ResultSet, maxAgeDays *int, now time.Time) {
	if rs == nil || maxAgeDays == nil || *maxAgeDays < 0 {
		return
	}

	threshold := now.Add(-time.Duration(*maxAgeDays) * 24 * time.Hour)

	kept := rs.Hits[:0]
	for _, h := range rs.Hits {
		if !h.UpdatedOn.Before(threshold) {
			kept = append(kept, h)
		}
	}
	rs.Hits = kept
	rs.Total = len(kept)
}
