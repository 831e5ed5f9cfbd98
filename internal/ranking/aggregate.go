package ranking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/igusev/siterank/internal/model"
)

// MissingAuthority stands in for absent authority data when comparing candidates
// It ranks below any real authority value.
const MissingAuthority = 0.0000000001

// UpdatedOnLayout is the crawler's timestamp format (no zone, UTC implied)
const UpdatedOnLayout = "2006-01-02T15:04:05"

// Aggregate collapses the grouped index response into one representative hit per site
// Broken groups are dropped and reported; a response without groups is ErrMalformedUpstream.
func Aggregate(raw *model.RawResponse) (*model.ResultSet, []GroupError, error) {
	if raw == nil || raw.Groups == nil {
		return nil, nil, fmt.Errorf("%w: missing groups", ErrMalformedUpstream)
	}
	if raw.Groups.Buckets == nil {
		return nil, nil, fmt.Errorf("%w: missing buckets", ErrMalformedUpstream)
	}
	if raw.Groups.OtherCount == nil {
		return nil, nil, fmt.Errorf("%w: missing other_count", ErrMalformedUpstream)
	}

	buckets := raw.Groups.Buckets
	rs := &model.ResultSet{
		Total:      len(buckets) + *raw.Groups.OtherCount,
		Hits:       make([]model.SearchHit, 0, len(buckets)),
		Suggestion: raw.Suggest.First(),
	}

	var dropped []GroupError
	bySite := make(map[string]int, len(buckets))
	chosen := make([]model.RawDocument, 0, len(buckets))

	for _, bucket := range buckets {
		hit, best, err := representative(bucket)
		if err != nil {
			dropped = append(dropped, GroupError{SiteID: bucket.Key, Err: err})
			continue
		}

		// Duplicate keys are merged so the one-hit-per-site invariant holds
		if i, seen := bySite[hit.SiteID]; seen {
			if better(best, chosen[i]) {
				rs.Hits[i] = hit
				chosen[i] = best
			}
			continue
		}

		bySite[hit.SiteID] = len(rs.Hits)
		rs.Hits = append(rs.Hits, hit)
		chosen = append(chosen, best)
	}

	return rs, dropped, nil
}

// representative picks the best candidate of a bucket and converts it into a hit
func representative(bucket model.RawBucket) (model.SearchHit, model.RawDocument, error) {
	if err := bucket.Err(); err != nil {
		return model.SearchHit{}, model.RawDocument{}, err
	}

	siteID := strings.TrimSpace(bucket.Key)
	if siteID == "" {
		return model.SearchHit{}, model.RawDocument{}, errors.New("empty site id")
	}
	if len(bucket.Candidates) == 0 {
		return model.SearchHit{}, model.RawDocument{}, errors.New("no candidate documents")
	}

	best := bucket.Candidates[0]
	for _, candidate := range bucket.Candidates[1:] {
		if better(candidate, best) {
			best = candidate
		}
	}

	updatedOn, err := ParseUpdatedOn(best.Source.UpdatedOn)
	if err != nil {
		return model.SearchHit{}, model.RawDocument{}, err
	}

	// Effective IR score is the product of both comparator keys
	score := authorityKey(best) * best.Score

	hit := model.SearchHit{
		SiteID:     siteID,
		URL:        best.Source.URL,
		Title:      best.Source.Title,
		Meta:       best.Source.Meta,
		Links:      best.Source.Links,
		Authority:  best.Authority,
		UpdatedOn:  updatedOn,
		IRScore:    score,
		FinalScore: score,
	}
	if anchors := best.Source.AnchorList(); len(anchors) > 0 {
		hit.Anchor = anchors[0]
	}

	return hit, best, nil
}

// better reports whether a ranks strictly above b: higher authority first, then higher match score
// A document without authority ranks below every document that has one, even an authority of 0.
func better(a, b model.RawDocument) bool {
	if (a.Authority == nil) != (b.Authority == nil) {
		return a.Authority != nil
	}
	ka, kb := authorityKey(a), authorityKey(b)
	if ka != kb {
		return ka > kb
	}
	return a.Score > b.Score
}

func authorityKey(d model.RawDocument) float64 {
	if d.Authority == nil {
		return MissingAuthority
	}
	return *d.Authority
}

// ParseUpdatedOn parses a crawl timestamp in the crawler layout or RFC3339
func ParseUpdatedOn(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("missing updated_on")
	}
	if t, err := time.Parse(UpdatedOnLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid updated_on %q: %w", value, err)
	}
	return t, nil
}
