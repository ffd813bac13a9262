package iostream

import (
	"io"

	"golang.org/x/sync/errgroup"
)

// StdReaders are the two output pipes of a worker process.
type StdReaders struct {
	Stdout io.Reader
	Stderr io.Reader
}

// StdWriters is one destination for a worker's output, e.g. the console or its log files.
type StdWriters struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Stream copies both pipes to every destination in ws. The returned group
// finishes once both pipes reached EOF; Wait reports the first read error.
func (r *StdReaders) Stream(ws ...*StdWriters) *errgroup.Group {
	var outs, errs []io.Writer
	for _, w := range ws {
		outs = append(outs, w.Stdout)
		errs = append(errs, w.Stderr)
	}
	var g errgroup.Group
	g.Go(func() error { return Tee(r.Stdout, outs...) })
	g.Go(func() error { return Tee(r.Stderr, errs...) })
	return &g
}
