package game

import "math/rand"

// Frontier is the ordered set of full URLs to fetch in the next round.
// Only the coordinator touches it, so it carries no lock.
type Frontier struct {
	items []string
	seen  map[string]bool // every URL ever pushed
}

// NewFrontier creates a frontier seeded with urls
func NewFrontier(urls ...string) *Frontier {
	f := &Frontier{
		items: make([]string, 0, len(urls)),
		seen:  make(map[string]bool),
	}
	f.Push(urls...)
	return f
}

// Push appends urls that were never pushed before.
// Returns the number actually added.
func (f *Frontier) Push(urls ...string) int {
	added := 0
	for _, url := range urls {
		if f.seen[url] {
			continue
		}
		f.seen[url] = true
		f.items = append(f.items, url)
		added++
	}
	return added
}

// Len returns the number of URLs waiting
func (f *Frontier) Len() int {
	return len(f.items)
}

// IsEmpty returns true if nothing is waiting
func (f *Frontier) IsEmpty() bool {
	return len(f.items) == 0
}

// Shuffle randomises the order of the waiting URLs
func (f *Frontier) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(f.items), func(i, j int) {
		f.items[i], f.items[j] = f.items[j], f.items[i]
	})
}

// Drain splits the waiting URLs into at most workers chunks of len/workers+1
// URLs each and empties the frontier. The seen set is kept.
func (f *Frontier) Drain(workers int) [][]string {
	if len(f.items) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	size := len(f.items)/workers + 1
	chunks := make([][]string, 0, workers)
	for start := 0; start < len(f.items); start += size {
		end := min(start+size, len(f.items))
		chunks = append(chunks, f.items[start:end])
	}

	f.items = nil
	return chunks
}
