package game

import (
	"context"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/crawler"
	"github.com/alvmarrod/wiki-weaver/internal/linkgraph"
	"github.com/alvmarrod/wiki-weaver/internal/metrics"
	"github.com/alvmarrod/wiki-weaver/internal/wiki"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// explorer fetches one chunk of the frontier and reports what it discovered
type explorer struct {
	id      int
	links   crawler.LinkGetter
	baseURL string
	graph   *linkgraph.LinkGraph
	tracker *metrics.Tracker
	clock   clock.Clock
	delay   time.Duration
	out     chan<- Message
	log     *logrus.Entry
}

// explore processes every URL of chunk, then sends a single LinksFound.
// Page failures are logged and skipped. If ctx ends the explorer stops early
// and the message may be dropped, the coordinator no longer wants it.
func (e *explorer) explore(ctx context.Context, chunk []string) {
	var discovered []string

	for i, fullURL := range chunk {
		if ctx.Err() != nil {
			break
		}

		from := wiki.ToRelative(fullURL, e.baseURL)

		started := e.clock.Now()
		links, err := e.links.GetLinks(ctx, fullURL)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.tracker.IncrementPagesFailed()
			e.log.Warnf("Couldn't get page [%s]: %v", fullURL, err)
		} else {
			e.tracker.RecordFetchTime(e.clock.Now().Sub(started))
			e.tracker.IncrementPagesFetched()

			fresh := e.graph.AddLinks(from, links)
			e.tracker.AddLinks(len(links), len(fresh))
			discovered = append(discovered, fresh...)

			e.log.Debugf("Explored %s: %d links, %d new", from, len(links), len(fresh))
		}

		if i < len(chunk)-1 {
			select {
			case <-e.clock.After(e.delay):
			case <-ctx.Done():
			}
		}
	}

	select {
	case e.out <- LinksFound{Explorer: e.id, Links: discovered}:
	case <-ctx.Done():
		e.log.Debugf("Coordinator is gone, dropping %d links", len(discovered))
	}
}
