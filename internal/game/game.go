// Package game plays the Wiki Game: it crawls outward from a start article
// round by round until the target article shows up, then reports a shortest
// chain of links between the two over the graph discovered so far.
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/linkgraph"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/wiki"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// logEvery is how many rounds pass between progress lines
const logEvery = 10

// ErrExhausted is returned when every reachable page was explored without
// meeting the target
var ErrExhausted = xerrors.New("target has not been found")

// Result describes a finished game
type Result struct {
	RunID          uuid.UUID
	Start          string // relative URL
	Target         string // relative URL
	Path           []string
	Found          int
	Rounds         int
	SearchDuration time.Duration
	PathDuration   time.Duration
}

// Hops returns the number of links followed along Path
func (r *Result) Hops() int {
	if len(r.Path) == 0 {
		return 0
	}
	return len(r.Path) - 1
}

// Option customises a Game
type Option func(*Game)

// WithClock replaces the wall clock used for delays and timings
func WithClock(c clock.Clock) Option {
	return func(g *Game) { g.clock = c }
}

// WithRand replaces the source used to shuffle the frontier
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithTracker records crawl statistics into t
func WithTracker(t *metrics.Tracker) Option {
	return func(g *Game) { g.tracker = t }
}

// WithLogger sets the logger, a run_id field is added to it
func WithLogger(l *logrus.Entry) Option {
	return func(g *Game) { g.log = l }
}

// Game coordinates the explorers of a single run
type Game struct {
	cfg     *config.Config
	links   crawler.LinkGetter
	graph   *linkgraph.LinkGraph
	tracker *metrics.Tracker
	clock   clock.Clock
	rng     *rand.Rand
	log     *logrus.Entry
	runID   uuid.UUID
}

// New creates a game for cfg that fetches pages through links
func New(cfg *config.Config, links crawler.LinkGetter, opts ...Option) *Game {
	g := &Game{
		cfg:   cfg,
		links: links,
		graph: linkgraph.New(),
		clock: clock.WallClock,
		log:   logrus.NewEntry(logrus.StandardLogger()),
		runID: uuid.New(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.tracker == nil {
		g.tracker = metrics.NewTracker()
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(g.clock.Now().UnixNano()))
	}
	g.log = g.log.WithField("run_id", g.runID.String())

	return g
}

// RunID identifies this game in logs and history
func (g *Game) RunID() uuid.UUID {
	return g.runID
}

// Graph returns the link graph built by the game
func (g *Game) Graph() *linkgraph.LinkGraph {
	return g.graph
}

// Play crawls until the target is found, the reachable pages run out or ctx
// is cancelled. On exhaustion the partial result comes with ErrExhausted.
func (g *Game) Play(ctx context.Context) (*Result, error) {
	base := g.cfg.BaseURL
	startRel := wiki.ToRelative(g.cfg.Start, base)
	targetRel := wiki.ToRelative(g.cfg.Target, base)

	result := &Result{RunID: g.runID, Start: startRel, Target: targetRel}

	g.log.Infof("Start rel [%s] Target rel [%s]", startRel, targetRel)

	if startRel == targetRel {
		g.log.Info("Start page is already the target")
		result.Path = []string{startRel}
		result.Found = 1
		return result, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs := make(chan Message, g.cfg.ChannelCapacity)
	finished := make(chan int)
	var wg sync.WaitGroup

	frontier := NewFrontier(wiki.ToFull(g.cfg.Start, base))
	found, dead, inFlight, spawned := 0, 0, 0, 0

	// accept folds one message in, the frontier only grows while the game goes on
	accept := func(msg Message) {
		switch m := msg.(type) {
		case LinksFound:
			for _, link := range m.Links {
				if link == targetRel {
					found++
				}
			}
			if shouldStop(found) {
				return
			}
			for _, link := range m.Links {
				frontier.Push(wiki.ToFull(link, base))
			}
		}
	}

	searchStart := g.clock.Now()
	var err error

loop:
	for {
		if !frontier.IsEmpty() {
			result.Rounds++
			g.tracker.IncrementRounds()

			if result.Rounds%logEvery == 1 {
				g.log.Infof("*** Starting round [%d] ***", result.Rounds)
				g.log.Infof("Explorers finished : %d", dead)
				g.log.Infof("Current links #    : %d", frontier.Len())
			}

			frontier.Shuffle(g.rng)
			for _, chunk := range frontier.Drain(g.cfg.Workers) {
				spawned++
				inFlight++
				g.tracker.IncrementExplorersSpawned()

				e := g.newExplorer(spawned, msgs)
				wg.Add(1)
				go func(chunk []string) {
					defer wg.Done()
					e.explore(runCtx, chunk)
					select {
					case finished <- e.id:
					case <-runCtx.Done():
					}
				}(chunk)
			}
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop

		case msg := <-msgs:
			accept(msg)
			if shouldStop(found) {
				break loop
			}

		case <-finished:
			inFlight--
			dead++
			g.tracker.IncrementExplorersFinished()

			if shouldStop(found) {
				break loop
			}
			if inFlight > 0 || !frontier.IsEmpty() {
				continue
			}

			// Every explorer is done, so whatever they sent is already buffered
			for drained := false; !drained; {
				select {
				case msg := <-msgs:
					accept(msg)
				default:
					drained = true
				}
			}
			if shouldStop(found) {
				break loop
			}
			if frontier.IsEmpty() {
				g.log.Info("No more links to explore")
				g.log.Infof("Stopped at round [%d]", result.Rounds)
				break loop
			}
		}
	}

	// Abort what is still running and wait, the graph is queried quiesced
	cancel()
	wg.Wait()

	result.Found = found
	result.SearchDuration = g.clock.Now().Sub(searchStart)

	if err != nil {
		return result, xerrors.Errorf("game interrupted: %w", err)
	}

	if found == 0 {
		g.log.Info("Target has not been found :(")
		return result, xerrors.Errorf("%s -> %s after %d rounds: %w", startRel, targetRel, result.Rounds, ErrExhausted)
	}

	pathStart := g.clock.Now()
	path, err := g.graph.ShortestPath(startRel, targetRel)
	if err != nil {
		return result, xerrors.Errorf("target was seen but path query failed: %w", err)
	}
	result.Path = path
	result.PathDuration = g.clock.Now().Sub(pathStart)

	g.log.Info("Target has been found!")
	return result, nil
}

func (g *Game) newExplorer(id int, out chan<- Message) *explorer {
	return &explorer{
		id:      id,
		links:   g.links,
		baseURL: g.cfg.BaseURL,
		graph:   g.graph,
		tracker: g.tracker,
		clock:   g.clock,
		delay:   time.Duration(g.cfg.PageDelayMs) * time.Millisecond,
		out:     out,
		log:     g.log.WithField("explorer", id),
	}
}

// shouldStop is the termination predicate: the first sighting of the target ends the crawl
func shouldStop(found int) bool {
	return found >= 1
}
