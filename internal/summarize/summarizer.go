package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/issuelens/internal/cache"
	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/providers"
	"github.com/dshills/issuelens/internal/retry"
)

const (
	DefaultConcurrency = 10
	DefaultBatchSize   = 50
	DefaultMaxTokens   = 60
	DefaultTemperature = 0.3
)

// Store is the part of the cache the summarizer needs.
type Store interface {
	Get(ctx context.Context, key string) (cache.Value, bool, error)
	Set(ctx context.Context, key string, value cache.Value, expireIn time.Duration) error
}

// Options configures a Summarizer.
type Options struct {
	// Model names the model in cache keys. It should match the completer's
	// model so offline runs still find summaries cached by online runs.
	Model          string
	PromptTemplate string
	MaxTokens      int
	Temperature    float64
	// TTL is the cache lifetime of a summary, fallbacks included.
	// Zero uses the cache default.
	TTL          time.Duration
	Concurrency  int
	BatchSize    int
	ForceRefresh bool
	Policy       retry.Policy
	Logger       *slog.Logger
}

// Summarizer turns issues into one-line summaries.
type Summarizer struct {
	store     Store
	completer providers.Completer
	opts      Options
	sem       *semaphore.Weighted
	log       *slog.Logger

	Degradations *Degradations
}

// New creates a Summarizer. A nil completer serves cached summaries only
// and falls back for everything else without caching the fallback.
func New(store Store, completer providers.Completer, opts Options) *Summarizer {
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Model == "" && completer != nil {
		opts.Model = completer.Model()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Summarizer{
		store:        store,
		completer:    completer,
		opts:         opts,
		sem:          semaphore.NewWeighted(int64(opts.Concurrency)),
		log:          opts.Logger,
		Degradations: &Degradations{},
	}
}

// Key returns the cache key of the issue's summary.
func (s *Summarizer) Key(is issue.Issue) string {
	return cache.SummaryKey(cache.SummarySubject{
		Number:    is.Number,
		Title:     is.Title,
		Body:      is.Body,
		UpdatedAt: is.UpdatedAt,
		Model:     s.opts.Model,
		Prompt:    s.opts.PromptTemplate,
	})
}

// Summarize returns the issue's summary, producing and caching it on a
// miss. Upstream failures end in a fallback; the returned error is only
// ever a cache failure or the context's error.
func (s *Summarizer) Summarize(ctx context.Context, is issue.Issue) (string, error) {
	key := s.Key(is)

	if !s.opts.ForceRefresh {
		v, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if ok && v.Kind == cache.KindSummary {
			return v.Summary, nil
		}
	}

	if s.completer == nil {
		s.Degradations.Record(ReasonOffline)
		return Fallback(is), nil
	}

	summary, err := s.produce(ctx, is)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		reason := retry.Classify(err).Kind
		s.log.Warn("summary failed, using fallback",
			"issue", is.Number, "reason", reason, "error", err)
		s.Degradations.Record(string(reason))
		summary = Fallback(is)
	}

	if err := s.store.Set(ctx, key, cache.SummaryValue(summary), s.opts.TTL); err != nil {
		return "", err
	}
	return summary, nil
}

func (s *Summarizer) produce(ctx context.Context, is issue.Issue) (string, error) {
	req := providers.CompletionRequest{
		UserPrompt:  RenderPrompt(s.opts.PromptTemplate, is),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	}

	var summary string
	err := s.opts.Policy.Do(ctx, func(ctx context.Context, _ int) error {
		resp, err := s.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		text := clean(resp.Content)
		if !Acceptable(text) {
			return retry.New(retry.KindQualityRejected,
				fmt.Errorf("unusable summary (%d runes)", len([]rune(text))))
		}
		summary = text
		return nil
	}, func(f *retry.Failure, attempt int, delay time.Duration) {
		s.log.Debug("retrying summary",
			"issue", is.Number, "attempt", attempt+1, "reason", f.Kind, "delay", delay)
	})
	return summary, err
}

// SummarizeBatch summarizes issues and returns the summaries in input
// order. Chunks of BatchSize run one after another; within a chunk at most
// Concurrency summaries are produced at once. The first cache failure
// cancels the rest of the batch.
func (s *Summarizer) SummarizeBatch(ctx context.Context, issues []issue.Issue) ([]string, error) {
	out := make([]string, len(issues))
	for start := 0; start < len(issues); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(issues))
		s.log.Debug("summarizing chunk", "from", start+1, "to", end, "total", len(issues))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer s.sem.Release(1)
				sum, err := s.Summarize(gctx, issues[i])
				if err != nil {
					return fmt.Errorf("summarizing issue #%d: %w", issues[i].Number, err)
				}
				out[i] = sum
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
