package pagepop

import "math"

// Options tunes the PageRank power iteration
type Options struct {
	Damping    float64 `mapstructure:"damping"`
	Iterations int     `mapstructure:"iterations"`
	Tolerance  float64 `mapstructure:"tolerance"`
}

// DefaultOptions returns the usual PageRank parameters
func DefaultOptions() Options {
	return Options{
		Damping:    0.85,
		Iterations: 50,
		Tolerance:  1e-6,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Damping <= 0 || o.Damping >= 1 {
		o.Damping = def.Damping
	}
	if o.Iterations <= 0 {
		o.Iterations = def.Iterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	return o
}

// PageRank scores every site of the graph
// Sites without any link in or out score 0. The remaining sites share a
// total mass of 1; dangling sites spread theirs uniformly.
func PageRank(g *Graph, opts Options) map[string]float64 {
	opts = opts.withDefaults()

	scores := make(map[string]float64, g.Len())
	for _, site := range g.nodes {
		scores[site] = 0
	}

	// Only linked sites take part
	linked := make([]bool, g.Len())
	for i, targets := range g.out {
		if len(targets) > 0 {
			linked[i] = true
		}
		for j := range targets {
			linked[j] = true
		}
	}

	active := make([]int, 0, g.Len())
	for i, ok := range linked {
		if ok {
			active = append(active, i)
		}
	}
	n := len(active)
	if n == 0 {
		return scores
	}

	rank := make([]float64, g.Len())
	for _, i := range active {
		rank[i] = 1 / float64(n)
	}

	next := make([]float64, g.Len())
	base := (1 - opts.Damping) / float64(n)

	for iter := 0; iter < opts.Iterations; iter++ {
		dangling := 0.0
		for _, i := range active {
			if len(g.out[i]) == 0 {
				dangling += rank[i]
			}
			next[i] = 0
		}

		for _, i := range active {
			targets := g.out[i]
			if len(targets) == 0 {
				continue
			}
			share := rank[i] / float64(len(targets))
			for j := range targets {
				next[j] += share
			}
		}

		delta := 0.0
		for _, i := range active {
			v := base + opts.Damping*(next[i]+dangling/float64(n))
			delta += math.Abs(v - rank[i])
			next[i] = v
		}

		rank, next = next, rank
		if delta < opts.Tolerance {
			break
		}
	}

	for _, i := range active {
		scores[g.nodes[i]] = rank[i]
	}
	return scores
}
