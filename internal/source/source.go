// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source fetches recently published papers from heterogeneous
// feeds (arXiv categories, journal RSS) and merges them into a canonical
// deduplicated candidate set.
package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Adapter produces normalized candidate papers from one source feed.
// Each source (arXiv, journal-X) is a variant implementation registered
// on a Registry; the pipeline never cares which is which.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, window time.Duration) ([]types.CandidatePaper, error)
}

// Registry holds the adapters active for a run.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an adapter. Registration order is preserved for
// deterministic log output.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int { return len(r.adapters) }

// FetchOutput holds the merged candidates and per-source errors.
type FetchOutput struct {
	Candidates   []types.CandidatePaper
	SourceErrors []string
}

// FetchAll fans out to every registered adapter concurrently and collects
// their candidates. A failing adapter contributes an error string instead
// of aborting the others.
func (r *Registry) FetchAll(ctx context.Context, window time.Duration, log zerolog.Logger) FetchOutput {
	type result struct {
		name       string
		candidates []types.CandidatePaper
		err        error
	}

	ch := make(chan result, len(r.adapters))
	var wg sync.WaitGroup
	for _, a := range r.adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			candidates, err := a.Fetch(ctx, window)
			ch <- result{name: a.Name(), candidates: candidates, err: err}
		}(a)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var out FetchOutput
	for res := range ch {
		if res.err != nil {
			log.Warn().Str("source", res.name).Err(res.err).Msg("source fetch failed")
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", res.name, res.err))
			continue
		}
		log.Info().Str("source", res.name).Int("candidates", len(res.candidates)).Msg("source fetched")
		out.Candidates = append(out.Candidates, res.candidates...)
	}
	return out
}

// capCandidates truncates a list to the per-source maximum. Zero means
// no cap.
func capCandidates(papers []types.CandidatePaper, max int) []types.CandidatePaper {
	if max > 0 && len(papers) > max {
		return papers[:max]
	}
	return papers
}
