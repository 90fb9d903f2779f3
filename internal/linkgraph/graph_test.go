package linkgraph

import (
	"fmt"
	"sync"
	"testing"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(LinkGraphTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type LinkGraphTestSuite struct {
	g *LinkGraph
}

func (s *LinkGraphTestSuite) SetUpTest(c *gc.C) {
	s.g = New()
}

func (s *LinkGraphTestSuite) TestMissingStart(c *gc.C) {
	_, err := s.g.ShortestPath("/wiki/S", "/wiki/T")
	c.Assert(xerrors.Is(err, ErrMissingStart), gc.Equals, true)
}

func (s *LinkGraphTestSuite) TestMissingTarget(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/n0")

	_, err := s.g.ShortestPath("/wiki/S", "/wiki/T")
	c.Assert(xerrors.Is(err, ErrMissingTarget), gc.Equals, true)
}

func (s *LinkGraphTestSuite) TestNoPath(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/a")
	s.g.AddEdge("/wiki/T", "/wiki/S")

	_, err := s.g.ShortestPath("/wiki/S", "/wiki/T")
	c.Assert(xerrors.Is(err, ErrNoPath), gc.Equals, true)
}

func (s *LinkGraphTestSuite) TestOneStep(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/T")

	path, err := s.g.ShortestPath("/wiki/S", "/wiki/T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"/wiki/S", "/wiki/T"})
}

func (s *LinkGraphTestSuite) TestSameNode(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/a")

	path, err := s.g.ShortestPath("/wiki/S", "/wiki/S")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"/wiki/S"})
}

func (s *LinkGraphTestSuite) TestDiamond(c *gc.C) {
	//        a -> b
	//  S  <          > T
	//        c  ---
	s.g.AddEdge("S", "a")
	s.g.AddEdge("S", "c")
	s.g.AddEdge("a", "b")
	s.g.AddEdge("b", "T")
	s.g.AddEdge("c", "T")

	path, err := s.g.ShortestPath("S", "T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"S", "c", "T"})
	s.assertIsPath(c, path, "S", "T")
}

func (s *LinkGraphTestSuite) TestShortcutAddedLater(c *gc.C) {
	s.g.AddEdge("S", "a")
	s.g.AddEdge("a", "b")
	s.g.AddEdge("b", "c")
	s.g.AddEdge("c", "T")

	path, err := s.g.ShortestPath("S", "T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.HasLen, 5)

	// Both endpoints already known: the edge still counts
	s.g.AddLinks("a", []string{"T"})

	path, err = s.g.ShortestPath("S", "T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"S", "a", "T"})
}

func (s *LinkGraphTestSuite) TestPathIsMinimal(c *gc.C) {
	// Layered graph: every node of layer i links to every node of layer i+1,
	// plus a long chain from S to T. Shortest path has len(layers)+1 hops.
	layers := [][]string{{"x1", "x2"}, {"y1", "y2", "y3"}, {"z1"}}
	prev := []string{"S"}
	for _, layer := range layers {
		for _, p := range prev {
			for _, n := range layer {
				s.g.AddEdge(p, n)
			}
		}
		prev = layer
	}
	s.g.AddEdge("z1", "T")

	chain := "S"
	for i := 0; i < 10; i++ {
		next := fmt.Sprintf("chain%d", i)
		s.g.AddEdge(chain, next)
		chain = next
	}
	s.g.AddEdge(chain, "T")

	path, err := s.g.ShortestPath("S", "T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.HasLen, len(layers)+2)
	s.assertIsPath(c, path, "S", "T")
}

func (s *LinkGraphTestSuite) TestAddLinksReportsOnlyNewNodes(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/Known")

	discovered := s.g.AddLinks("/wiki/S", []string{"/wiki/Known", "/wiki/New", "/wiki/New", "/wiki/Other"})
	c.Assert(discovered, gc.DeepEquals, []string{"/wiki/New", "/wiki/Other"})

	// Every reported link got an edge, duplicates included
	c.Assert(s.g.HasEdge("/wiki/S", "/wiki/Known"), gc.Equals, true)
	c.Assert(s.g.HasEdge("/wiki/S", "/wiki/New"), gc.Equals, true)
	c.Assert(s.g.HasEdge("/wiki/S", "/wiki/Other"), gc.Equals, true)

	nodes, edges := s.g.GetStats()
	c.Assert(nodes, gc.Equals, 4)
	c.Assert(edges, gc.Equals, 5)

	discovered = s.g.AddLinks("/wiki/Other", []string{"/wiki/New"})
	c.Assert(discovered, gc.HasLen, 0)
}

func (s *LinkGraphTestSuite) TestNodeUniqueness(c *gc.C) {
	urls := map[string]bool{}
	for i := 0; i < 50; i++ {
		from := fmt.Sprintf("/wiki/%d", i%7)
		to := fmt.Sprintf("/wiki/%d", (i*3)%11)
		s.g.AddEdge(from, to)
		urls[from], urls[to] = true, true

		nodes, _ := s.g.GetStats()
		c.Assert(nodes, gc.Equals, len(urls))
	}
	for url := range urls {
		c.Assert(s.g.NodeExists(url), gc.Equals, true)
	}
	c.Assert(s.g.NodeExists("/wiki/never"), gc.Equals, false)
}

func (s *LinkGraphTestSuite) TestSelfLinkIsRecorded(c *gc.C) {
	s.g.AddEdge("/wiki/S", "/wiki/S")

	nodes, edges := s.g.GetStats()
	c.Assert(nodes, gc.Equals, 1)
	c.Assert(edges, gc.Equals, 1)
	c.Assert(s.g.HasEdge("/wiki/S", "/wiki/S"), gc.Equals, true)

	s.g.AddEdge("/wiki/S", "/wiki/T")
	path, err := s.g.ShortestPath("/wiki/S", "/wiki/T")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"/wiki/S", "/wiki/T"})

	path, err = s.g.ShortestPath("/wiki/S", "/wiki/S")
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.DeepEquals, []string{"/wiki/S"})
}

func (s *LinkGraphTestSuite) TestConcurrentMutationIsMonotonic(c *gc.C) {
	const writers = 8
	const pages = 40

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for p := 0; p < pages; p++ {
				from := fmt.Sprintf("/wiki/%d", p)
				s.g.AddLinks(from, []string{
					fmt.Sprintf("/wiki/%d", p+1),
					fmt.Sprintf("/wiki/w%d", w),
				})
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	lastNodes, lastEdges := 0, 0
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		nodes, edges := s.g.GetStats()
		c.Assert(nodes >= lastNodes, gc.Equals, true)
		c.Assert(edges >= lastEdges, gc.Equals, true)
		lastNodes, lastEdges = nodes, edges
	}

	nodes, edges := s.g.GetStats()
	c.Assert(nodes, gc.Equals, pages+1+writers)
	c.Assert(edges, gc.Equals, writers*pages*2)

	path, err := s.g.ShortestPath("/wiki/0", fmt.Sprintf("/wiki/%d", pages))
	c.Assert(err, gc.IsNil)
	c.Assert(path, gc.HasLen, pages+1)
}

// assertIsPath checks endpoints and that every hop is a recorded edge
func (s *LinkGraphTestSuite) assertIsPath(c *gc.C, path []string, start, target string) {
	c.Assert(path[0], gc.Equals, start)
	c.Assert(path[len(path)-1], gc.Equals, target)
	for i := 0; i+1 < len(path); i++ {
		c.Assert(s.g.HasEdge(path[i], path[i+1]), gc.Equals, true, gc.Commentf("missing edge %s -> %s", path[i], path[i+1]))
	}
}
