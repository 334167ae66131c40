package download

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/ytget/ytplay/internal/log"
	"github.com/ytget/ytplay/internal/metrics"
	"github.com/ytget/ytplay/internal/model"
)

// SearchToken flags a format search as cancelled. A cancelled search
// discards its result; the underlying resolve call is left to finish.
type SearchToken struct {
	cancelled atomic.Bool
}

// NewSearchToken returns a live token.
func NewSearchToken() *SearchToken {
	return &SearchToken{}
}

// Cancel marks the search as cancelled. Safe to call more than once.
func (t *SearchToken) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (t *SearchToken) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Searcher resolves URLs in the background.
type Searcher struct {
	resolver Resolver
	wg       conc.WaitGroup
	log      zerolog.Logger
	metrics  *metrics.Recorder
}

// NewSearcher creates a searcher over resolver. m may be nil.
func NewSearcher(resolver Resolver, m *metrics.Recorder) *Searcher {
	return &Searcher{
		resolver: resolver,
		log:      log.WithComponent("search"),
		metrics:  m,
	}
}

// Resolve runs a blocking resolution, checking token before and after the
// call. It returns ErrSearchCancelled when the token was cancelled at either
// checkpoint and *ResolutionError for engine failures.
func (s *Searcher) Resolve(ctx context.Context, token *SearchToken, url string) (*model.VideoInfo, error) {
	if token.Cancelled() {
		return nil, ErrSearchCancelled
	}

	info, err := s.resolver.Resolve(ctx, url)

	if token.Cancelled() {
		s.log.Debug().Str("url", url).Msg("search result discarded")
		return nil, ErrSearchCancelled
	}
	if err != nil {
		s.metrics.ResolveFailed()
		var re *ResolutionError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, &ResolutionError{URL: url, Err: err}
	}
	return info, nil
}

// Start resolves url on a background goroutine and calls exactly one of
// onResult or onError unless the returned token is cancelled first.
func (s *Searcher) Start(ctx context.Context, url string, onResult func(*model.VideoInfo), onError func(error)) *SearchToken {
	token := NewSearchToken()
	s.wg.Go(func() {
		info, err := s.Resolve(ctx, token, url)
		switch {
		case errors.Is(err, ErrSearchCancelled):
			return
		case err != nil:
			s.log.Warn().Err(err).Str("url", url).Msg("resolve failed")
			if onError != nil {
				onError(err)
			}
		default:
			if onResult != nil {
				onResult(info)
			}
		}
	})
	return token
}

// Wait blocks until all started searches have returned.
func (s *Searcher) Wait() {
	s.wg.Wait()
}
