// Package describe produces plain-language descriptions of procedure codes,
// cache-aside over the completion service, and answers preventative-care
// lookups.
package describe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gyeh/billcheck/internal/cache"
	"github.com/gyeh/billcheck/internal/completion"
	"github.com/gyeh/billcheck/internal/normalize"
)

const (
	systemPrompt = "You are a medical billing assistant that explains CPT codes in plain language."
	userPrompt   = "Explain CPT code %s in 1-2 short sentences."

	defaultParallelism = 4
)

// ErrInvalidCode is returned for an empty or non-alphanumeric code.
var ErrInvalidCode = errors.New("invalid procedure code")

// PreventativeLookup answers whether a code is preventative care.
type PreventativeLookup interface {
	IsPreventative(ctx context.Context, code string) (bool, error)
}

// Options configure a Service.
type Options struct {
	Cache        cache.Cache
	Completer    completion.Completer
	Preventative PreventativeLookup
	// TTL bounds how long a generated description is reused; zero keeps it.
	TTL time.Duration
	// Parallelism caps concurrent completions in DescribeAll.
	Parallelism int
}

// Service is safe for concurrent use.
type Service struct {
	opts  Options
	log   zerolog.Logger
	group singleflight.Group
}

// New returns a Service.
func New(opts Options, log zerolog.Logger) *Service {
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	return &Service{opts: opts, log: log}
}

// Describe returns the cached description of code, generating and storing
// one on a miss. Concurrent misses for the same code share one completion.
func (s *Service) Describe(ctx context.Context, code string) (string, error) {
	norm := normalize.NormalizeCode(&code)
	if norm == nil {
		return "", ErrInvalidCode
	}
	key := cacheKey(*norm)

	if s.opts.Cache != nil {
		val, ok, err := s.opts.Cache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("code", *norm).Msg("description cache read failed")
		} else if ok {
			return string(val), nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		desc, err := s.opts.Completer.Complete(ctx, systemPrompt, fmt.Sprintf(userPrompt, *norm))
		if err != nil {
			return "", err
		}
		if s.opts.Cache != nil {
			if err := s.opts.Cache.Set(ctx, key, []byte(desc), s.opts.TTL); err != nil {
				s.log.Warn().Err(err).Str("code", *norm).Msg("description cache write failed")
			}
		}
		return desc, nil
	})
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", *norm, err)
	}
	s.log.Debug().Str("code", *norm).Bool("shared", shared).Msg("description generated")
	return v.(string), nil
}

// DescribeAll describes every code with bounded parallelism. It stops at the
// first failure.
func (s *Service) DescribeAll(ctx context.Context, codes []string) (map[string]string, error) {
	codes = normalize.NormalizeCodes(codes)
	out := make(map[string]string, len(codes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for _, code := range codes {
		g.Go(func() error {
			desc, err := s.Describe(gctx, code)
			if err != nil {
				return err
			}
			mu.Lock()
			out[code] = desc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsPreventative reports whether code is on the preventative-care list. With
// no lookup configured every code is reported as not preventative.
func (s *Service) IsPreventative(ctx context.Context, code string) (bool, error) {
	norm := normalize.NormalizeCode(&code)
	if norm == nil {
		return false, ErrInvalidCode
	}
	if s.opts.Preventative == nil {
		return false, nil
	}
	return s.opts.Preventative.IsPreventative(ctx, *norm)
}

func cacheKey(code string) string {
	return "cpt:" + code
}
