package linkgraph

import "golang.org/x/xerrors"

var (
	// ErrMissingStart is returned when the start article was never added to the graph
	ErrMissingStart = xerrors.New("start node does not exist")

	// ErrMissingTarget is returned when the target article was never added to the graph
	ErrMissingTarget = xerrors.New("target node does not exist")

	// ErrNoPath is returned when both endpoints exist but the target is unreachable
	ErrNoPath = xerrors.New("no path found")
)
