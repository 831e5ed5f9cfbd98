// Package pagepop computes site popularity from the link graph between sites
package pagepop

import (
	"sort"

	"github.com/igusev/siterank/internal/model"
)

// Graph is a directed site-level link graph
// Edges only connect known sites; self-links and duplicates are dropped.
type Graph struct {
	nodes []string
	index map[string]int
	out   []map[int]bool
}

// NewGraph creates a graph over the given sites
func NewGraph(sites []string) *Graph {
	g := &Graph{index: make(map[string]int, len(sites))}
	for _, s := range sites {
		g.AddNode(s)
	}
	return g
}

// AddNode adds a site; empty or known sites are ignored
func (g *Graph) AddNode(site string) {
	if site == "" {
		return
	}
	if _, ok := g.index[site]; ok {
		return
	}
	g.index[site] = len(g.nodes)
	g.nodes = append(g.nodes, site)
	g.out = append(g.out, make(map[int]bool))
}

// AddEdge links from to to
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	i, ok := g.index[from]
	if !ok {
		return
	}
	j, ok := g.index[to]
	if !ok {
		return
	}
	g.out[i][j] = true
}

// Nodes returns the sites of the graph in insertion order
func (g *Graph) Nodes() []string {
	nodes := make([]string, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Len returns the number of sites
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct links
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.out {
		n += len(targets)
	}
	return n
}

// Links returns the sorted targets of a site
func (g *Graph) Links(site string) []string {
	i, ok := g.index[site]
	if !ok {
		return nil
	}
	links := make([]string, 0, len(g.out[i]))
	for j := range g.out[i] {
		links = append(links, g.nodes[j])
	}
	sort.Strings(links)
	return links
}

// GraphFromHits builds the graph between the sites of a result set
func GraphFromHits(hits []model.SearchHit) *Graph {
	g := &Graph{index: make(map[string]int, len(hits))}
	for _, h := range hits {
		g.AddNode(h.SiteID)
	}
	for _, h := range hits {
		for _, link := range h.Links {
			g.AddEdge(h.SiteID, model.DomainOf(link))
		}
	}
	return g
}

// GraphFromDocuments builds the graph between the sites of all indexed pages
// Banned pages neither add sites nor links.
func GraphFromDocuments(docs []model.Document) *Graph {
	g := &Graph{index: make(map[string]int)}
	for _, d := range docs {
		if d.Banned {
			continue
		}
		g.AddNode(siteOf(d))
	}
	for _, d := range docs {
		if d.Banned {
			continue
		}
		from := siteOf(d)
		for _, link := range d.Links {
			g.AddEdge(from, model.DomainOf(link))
		}
	}
	return g
}

func siteOf(d model.Document) string {
	if d.Domain != "" {
		return d.Domain
	}
	return model.DomainOf(d.URL)
}
