// Package linkgraph holds the directed multigraph of article links discovered
// during a game. Nodes are keyed by relative article URL and are only ever
// added; the graph is never persisted.
package linkgraph

import (
	"sync"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/path"
)

// LinkGraph is an in-memory directed multigraph of relative article URLs
type LinkGraph struct {
	g          *multi.DirectedGraph
	nodesByURL map[string]graph.Node // relative url -> node
	urlsByID   map[int64]string      // node id -> relative url
	edgeCount  int
	mu         sync.Mutex
}

// New creates an empty link graph
func New() *LinkGraph {
	return &LinkGraph{
		g:          multi.NewDirectedGraph(),
		nodesByURL: make(map[string]graph.Node),
		urlsByID:   make(map[int64]string),
	}
}

// NodeExists reports whether url has a node in the graph
func (lg *LinkGraph) NodeExists(url string) bool {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	_, exists := lg.nodesByURL[url]
	return exists
}

// AddEdge records one link from -> to, creating both nodes if needed.
// Repeated calls add parallel edges.
func (lg *LinkGraph) AddEdge(from, to string) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	lg.addEdge(from, to)
}

// AddLinks records an edge from the page at from to every entry of links while
// holding the lock once for the whole batch. It returns the links that had no
// node before the call, in order and without repeats.
func (lg *LinkGraph) AddLinks(from string, links []string) []string {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	discovered := make([]string, 0, len(links))
	reported := make(map[string]bool)
	for _, link := range links {
		if _, exists := lg.nodesByURL[link]; exists || reported[link] {
			continue
		}
		reported[link] = true
		discovered = append(discovered, link)
	}

	// Known targets still get their edge, it may open a shorter path
	for _, link := range links {
		lg.addEdge(from, link)
	}

	return discovered
}

// HasEdge reports whether at least one edge from -> to exists
func (lg *LinkGraph) HasEdge(from, to string) bool {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	u, ok := lg.nodesByURL[from]
	if !ok {
		return false
	}
	v, ok := lg.nodesByURL[to]
	if !ok {
		return false
	}
	return lg.g.HasEdgeFromTo(u.ID(), v.ID())
}

// GetStats returns current graph statistics
func (lg *LinkGraph) GetStats() (nodeCount, edgeCount int) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	return len(lg.nodesByURL), lg.edgeCount
}

// ShortestPath returns the nodes of a shortest path from start to target,
// both included. Every edge weighs 1.
func (lg *LinkGraph) ShortestPath(start, target string) ([]string, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	s, ok := lg.nodesByURL[start]
	if !ok {
		return nil, xerrors.Errorf("shortest path %s -> %s: %w", start, target, ErrMissingStart)
	}
	t, ok := lg.nodesByURL[target]
	if !ok {
		return nil, xerrors.Errorf("shortest path %s -> %s: %w", start, target, ErrMissingTarget)
	}

	// A* with the null heuristic, as breadth first as it gets on unit weights
	shortest, _ := path.AStar(s, t, lg.g, nil)
	nodes, _ := shortest.To(t.ID())
	if len(nodes) == 0 {
		return nil, xerrors.Errorf("shortest path %s -> %s: %w", start, target, ErrNoPath)
	}

	urls := make([]string, len(nodes))
	for i, n := range nodes {
		urls[i] = lg.urlsByID[n.ID()]
	}
	return urls, nil
}

// nodeFor returns the node for url, creating it on first use
func (lg *LinkGraph) nodeFor(url string) graph.Node {
	if n, exists := lg.nodesByURL[url]; exists {
		return n
	}

	n := lg.g.NewNode()
	lg.g.AddNode(n)
	lg.nodesByURL[url] = n
	lg.urlsByID[n.ID()] = url
	return n
}

func (lg *LinkGraph) addEdge(from, to string) {
	u := lg.nodeFor(from)
	v := lg.nodeFor(to)

	lg.g.SetLine(lg.g.NewLine(u, v))
	lg.edgeCount++
}
