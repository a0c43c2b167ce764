package describe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeCompleter struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return "desc for " + user, nil
}

type fakePreventative map[string]bool

func (f fakePreventative) IsPreventative(_ context.Context, code string) (bool, error) {
	return f[code], nil
}

func TestDescribe_CacheAside(t *testing.T) {
	c := newMemCache()
	comp := &fakeCompleter{}
	s := New(Options{Cache: c, Completer: comp}, zerolog.Nop())
	ctx := context.Background()

	first, err := s.Describe(ctx, " 99213 ")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	want := "desc for Explain CPT code 99213 in 1-2 short sentences."
	if first != want {
		t.Errorf("got %q, want %q", first, want)
	}
	if string(c.data["cpt:99213"]) != want {
		t.Error("description not written to cache")
	}

	second, err := s.Describe(ctx, "99213")
	if err != nil {
		t.Fatalf("Describe (cached): %v", err)
	}
	if second != first || comp.calls.Load() != 1 {
		t.Errorf("expected cache hit, completer calls = %d", comp.calls.Load())
	}
}

func TestDescribe_CacheReadErrorFallsThrough(t *testing.T) {
	c := newMemCache()
	c.getErr = errors.New("db down")
	comp := &fakeCompleter{}
	s := New(Options{Cache: c, Completer: comp}, zerolog.Nop())

	if _, err := s.Describe(context.Background(), "80053"); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if comp.calls.Load() != 1 {
		t.Errorf("completer calls = %d, want 1", comp.calls.Load())
	}
}

func TestDescribe_Errors(t *testing.T) {
	s := New(Options{Completer: &fakeCompleter{err: errors.New("quota")}}, zerolog.Nop())

	if _, err := s.Describe(context.Background(), " - "); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := s.Describe(context.Background(), "99213"); err == nil {
		t.Error("expected completer error")
	}
}

func TestDescribe_ConcurrentMissesShareCompletion(t *testing.T) {
	comp := &fakeCompleter{delay: 50 * time.Millisecond}
	s := New(Options{Cache: newMemCache(), Completer: comp}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Describe(context.Background(), "99213"); err != nil {
				t.Errorf("Describe: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := comp.calls.Load(); n > 2 {
		t.Errorf("completer calls = %d, expected concurrent misses to be collapsed", n)
	}
}

func TestDescribeAll(t *testing.T) {
	comp := &fakeCompleter{}
	s := New(Options{Cache: newMemCache(), Completer: comp, Parallelism: 2}, zerolog.Nop())

	codes := []string{"99213", "80053", "36415", "99213", ""}
	got, err := s.DescribeAll(context.Background(), codes)
	if err != nil {
		t.Fatalf("DescribeAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d descriptions, want 3", len(got))
	}
	for _, code := range []string{"99213", "80053", "36415"} {
		want := fmt.Sprintf("desc for Explain CPT code %s in 1-2 short sentences.", code)
		if got[code] != want {
			t.Errorf("%s: got %q", code, got[code])
		}
	}

	failing := New(Options{Completer: &fakeCompleter{err: errors.New("down")}}, zerolog.Nop())
	if _, err := failing.DescribeAll(context.Background(), codes); err == nil {
		t.Error("expected error from DescribeAll")
	}
}

func TestIsPreventative(t *testing.T) {
	s := New(Options{Preventative: fakePreventative{"99396": true}}, zerolog.Nop())
	ctx := context.Background()

	if ok, err := s.IsPreventative(ctx, "99396"); err != nil || !ok {
		t.Errorf("99396: got %v, %v", ok, err)
	}
	if ok, err := s.IsPreventative(ctx, "99213"); err != nil || ok {
		t.Errorf("99213: got %v, %v", ok, err)
	}
	if _, err := s.IsPreventative(ctx, ""); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}

	none := New(Options{}, zerolog.Nop())
	if ok, err := none.IsPreventative(ctx, "99396"); err != nil || ok {
		t.Errorf("no lookup: got %v, %v", ok, err)
	}
}
