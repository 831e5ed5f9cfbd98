package ranking

import (
	"sort"

	"github.com/igusev/siterank/internal/model"
)

// Weights configures the heuristic combination
// Both are expected in [0,1] with Global+Local <= 1, but nothing enforces it.
type Weights struct {
	Global float64 `json:"global_weight" mapstructure:"global_weight"`
	Local  float64 `json:"local_weight" mapstructure:"local_weight"`
}

// IR returns the weight left for the relevance score
// Not clamped: weights summing above 1 make it negative and it is applied as such.
func (w Weights) IR() float64 {
	return 1 - w.Global - w.Local
}

// IsZero reports whether both popularity weights are zero
func (w Weights) IsZero() bool {
	return w.Global == 0 && w.Local == 0
}

// HeuristicScore combines already normalized scores into the final value
func HeuristicScore(ir, global, local float64, w Weights) float64 {
	return global*w.Global + local*w.Local + ir*w.IR()
}

// Rank assigns FinalScore to every hit and sorts hits by it, highest first
// Popularity maps are keyed by site id; missing sites count as 0.
// The sort is stable so equal scores keep their previous relative order.
func Rank(rs *model.ResultSet, w Weights, global, local map[string]float64) {
	if rs == nil || len(rs.Hits) == 0 {
		return
	}

	irScores := make([]float64, len(rs.Hits))
	globalScores := make([]float64, len(rs.Hits))
	localScores := make([]float64, len(rs.Hits))
	for i, h := range rs.Hits {
		irScores[i] = h.IRScore
		globalScores[i] = global[h.SiteID]
		localScores[i] = local[h.SiteID]
	}

	irNorm := NormalizeOnMax(irScores)
	globalNorm := NormalizeOnMax(globalScores)
	localNorm := NormalizeOnMax(localScores)

	for i := range rs.Hits {
		rs.Hits[i].FinalScore = HeuristicScore(irNorm[i], globalNorm[i], localNorm[i], w)
	}

	sort.SliceStable(rs.Hits, func(i, j int) bool {
		return rs.Hits[i].FinalScore > rs.Hits[j].FinalScore
	})
}
