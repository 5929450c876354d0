// internal/classifier/classifier.go
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Classifier suggests a category name for each free-text description.
// Descriptions it cannot place are simply absent from the result.
type Classifier interface {
	Classify(ctx context.Context, descriptions []string, categories []string) (map[string]string, error)
}

// Nop never suggests anything; used when no model is configured.
type Nop struct{}

func (Nop) Classify(context.Context, []string, []string) (map[string]string, error) {
	return map[string]string{}, nil
}

const (
	DefaultBatchSize   = 25
	DefaultTimeout     = 15 * time.Second
	DefaultConcurrency = 2
	DefaultRetries     = 2
)

type BatcherOptions struct {
	BatchSize   int
	Timeout     time.Duration
	Concurrency int
	Retries     uint64
	Backoff     time.Duration
}

// Batcher splits a large request into batches, runs them with bounded
// concurrency, a per-batch timeout and retries. A failed batch does not
// cancel the others: the merged map of the successful ones is returned
// together with the joined errors of the failed ones.
type Batcher struct {
	inner Classifier
	opts  BatcherOptions
}

func NewBatcher(inner Classifier, opts BatcherOptions) *Batcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &Batcher{inner: inner, opts: opts}
}

func (b *Batcher) Classify(ctx context.Context, descriptions []string, categories []string) (map[string]string, error) {
	unique := dedupe(descriptions)
	result := make(map[string]string, len(unique))
	if len(unique) == 0 || len(categories) == 0 {
		return result, nil
	}

	allowed := make(map[string]string, len(categories))
	for _, c := range categories {
		allowed[strings.ToLower(strings.TrimSpace(c))] = c
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(b.opts.Concurrency)

	for i, batch := range chunk(unique, b.opts.BatchSize) {
		g.Go(func() error {
			got, err := b.runBatch(ctx, batch, categories)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("classifier batch failed", "batch", i, "size", len(batch), "error", err)
				errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
				return nil
			}
			for desc, label := range got {
				// only names from the given list are accepted
				if canonical, ok := allowed[strings.ToLower(strings.TrimSpace(label))]; ok {
					result[desc] = canonical
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return result, errors.Join(errs...)
}

func (b *Batcher) runBatch(ctx context.Context, batch, categories []string) (map[string]string, error) {
	var out map[string]string
	backoff := retry.WithMaxRetries(b.opts.Retries, retry.NewExponential(b.opts.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()

		got, err := b.inner.Classify(attemptCtx, batch, categories)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		out = got
		return nil
	})
	return out, err
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func chunk(in []string, size int) [][]string {
	var out [][]string
	for len(in) > size {
		out = append(out, in[:size])
		in = in[size:]
	}
	if len(in) > 0 {
		out = append(out, in)
	}
	return out
}
