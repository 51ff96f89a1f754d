package bundle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/store"
)

var greetingSet = MustOperationSet("greeting",
	Op("hello", Object),
	Op("files", Int),
)

func greetingStore() *store.MapStore {
	return store.NewMapStore().
		Put("greeting", "", store.Templates{
			"hello": "Hello {0}",
			"files": "{0,choice,0#no files|1#one file|1<{0,number,integer} files}",
		}).
		Put("greeting", "_fr", store.Templates{
			"hello": "Bonjour {0}",
			"files": "{0,choice,0#aucun fichier|1#un fichier|1<{0,number,integer} fichiers}",
		})
}

// countingStore counts fetches and optionally blocks them until release is closed.
type countingStore struct {
	next    store.Store
	fetches atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *countingStore) Fetch(ctx context.Context, bundleID, suffix string) (store.Templates, bool, error) {
	s.fetches.Add(1)
	if s.started != nil {
		s.once.Do(func() { close(s.started) })
	}
	if s.release != nil {
		<-s.release
	}
	return s.next.Fetch(ctx, bundleID, suffix)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheGet(t *testing.T) {
	h := erm.NewTestHelper(t)
	c := NewCache(greetingStore(), WithLogger(quietLogger()))
	ctx := context.Background()

	fr, err := c.Get(ctx, greetingSet, locale.MustParse("fr_FR"), DefaultConfiguration())
	h.AssertNoError(err)
	if got := fr.MustRender("files", 1200); got != "1\u00a0200 fichiers" {
		t.Fatalf("fr files = %q", got)
	}
	if got := fr.MustRender("hello", "Anne"); got != "Bonjour Anne" {
		t.Fatalf("fr hello = %q", got)
	}

	again, err := c.Get(ctx, greetingSet, locale.MustParse("fr_FR"), DefaultConfiguration())
	h.AssertNoError(err)
	if again != fr {
		t.Fatal("second Get should return the cached bundle")
	}

	en, err := c.Get(ctx, greetingSet, locale.MustParse("en_GB"), DefaultConfiguration())
	h.AssertNoError(err)
	if got := en.MustRender("files", 0); got != "no files" {
		t.Fatalf("en files = %q", got)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("Len() after Reset = %d", c.Len())
	}
}

func TestCacheGetNilSet(t *testing.T) {
	c := NewCache(greetingStore(), WithLogger(quietLogger()))
	_, err := c.Get(context.Background(), nil, locale.Root, DefaultConfiguration())
	erm.NewTestHelper(t).AssertKind(err, erm.KindInvalid)
}

func TestCacheNoStore(t *testing.T) {
	c := NewCache(nil, WithLogger(quietLogger()))
	_, err := c.Get(context.Background(), greetingSet, locale.Root, DefaultConfiguration())
	erm.NewTestHelper(t).AssertKind(err, erm.KindInvalid)
}

func TestCacheConcurrentBuildOnce(t *testing.T) {
	s := &countingStore{
		next:    greetingStore(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCache(s, WithLogger(quietLogger()))
	strict := Configuration{}
	fr := locale.MustParse("fr")

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan *Bundle, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get(context.Background(), greetingSet, fr, strict)
			if err != nil {
				errs <- err
				return
			}
			results <- b
		}()
	}

	<-s.started
	time.Sleep(20 * time.Millisecond)
	close(s.release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("Get: %v", err)
	}
	var first *Bundle
	for b := range results {
		if first == nil {
			first = b
		}
		if b != first {
			t.Fatal("callers observed different bundles")
		}
	}
	if n := s.fetches.Load(); n != 1 {
		t.Fatalf("store fetched %d times, want 1", n)
	}
}

func TestCacheFailureNotCached(t *testing.T) {
	var calls atomic.Int32
	ok := greetingStore()
	s := store.Func(func(ctx context.Context, bundleID, suffix string) (store.Templates, bool, error) {
		if calls.Add(1) == 1 {
			return nil, false, errors.New("temporarily unavailable")
		}
		return ok.Fetch(ctx, bundleID, suffix)
	})
	c := NewCache(s, WithLogger(quietLogger()))
	h := erm.NewTestHelper(t)
	strict := Configuration{}

	_, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
	h.AssertKind(err, erm.KindStore)
	if c.Len() != 0 {
		t.Fatal("failed build must not be cached")
	}

	b, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
	h.AssertNoError(err)
	if got := b.MustRender("hello", "you"); got != "Hello you" {
		t.Fatalf("hello = %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("store called %d times, want 2", calls.Load())
	}
}

func TestCacheValidationFailureNotCached(t *testing.T) {
	s := store.NewMapStore().Put("greeting", "", store.Templates{"hello": "Hello"})
	c := NewCache(s, WithLogger(quietLogger()))
	h := erm.NewTestHelper(t)

	_, err := c.Get(context.Background(), greetingSet, locale.Root, DefaultConfiguration())
	h.AssertKind(err, erm.KindArityMismatch)

	s.Put("greeting", "", store.Templates{"hello": "Hello {0}", "files": "{0} files"})
	_, err = c.Get(context.Background(), greetingSet, locale.Root, DefaultConfiguration())
	h.AssertNoError(err)
}

func TestCacheCallerCancelDoesNotAbortBuild(t *testing.T) {
	s := &countingStore{
		next:    greetingStore(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCache(s, WithLogger(quietLogger()))
	strict := Configuration{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, greetingSet, locale.Root, strict)
		done <- err
	}()

	<-s.started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Get error = %v, want context.Canceled", err)
	}

	close(s.release)
	b, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
	erm.NewTestHelper(t).AssertNoError(err)
	if b == nil {
		t.Fatal("expected bundle")
	}
	if n := s.fetches.Load(); n != 1 {
		t.Fatalf("store fetched %d times, want 1", n)
	}
}

func TestCacheSetStore(t *testing.T) {
	c := NewCache(greetingStore(), WithLogger(quietLogger()))
	ctx := context.Background()

	b, err := c.Get(ctx, greetingSet, locale.Root, DefaultConfiguration())
	erm.NewTestHelper(t).AssertNoError(err)
	if got := b.MustRender("hello", "x"); got != "Hello x" {
		t.Fatalf("hello = %q", got)
	}

	c.SetStore(store.NewMapStore().Put("greeting", "", store.Templates{
		"hello": "Hi {0}",
		"files": "{0} files",
	}))
	if c.Len() != 0 {
		t.Fatal("SetStore should drop cached bundles")
	}
	b, err = c.Get(ctx, greetingSet, locale.Root, DefaultConfiguration())
	erm.NewTestHelper(t).AssertNoError(err)
	if got := b.MustRender("hello", "x"); got != "Hi x" {
		t.Fatalf("hello after SetStore = %q", got)
	}
}

func TestCacheSetStoreDuringBuild(t *testing.T) {
	s := &countingStore{
		next:    greetingStore(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCache(s, WithLogger(quietLogger()))
	strict := Configuration{}
	h := erm.NewTestHelper(t)

	stale := make(chan *Bundle, 1)
	staleErr := make(chan error, 1)
	go func() {
		b, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
		staleErr <- err
		stale <- b
	}()

	<-s.started
	c.SetStore(store.NewMapStore().Put("greeting", "", store.Templates{
		"hello": "Hi {0}",
		"files": "{0} files",
	}))

	// Joins a new build instead of the one blocked on the old store.
	b, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
	h.AssertNoError(err)
	if got := b.MustRender("hello", "x"); got != "Hi x" {
		t.Fatalf("hello during stale build = %q", got)
	}

	close(s.release)
	h.AssertNoError(<-staleErr)
	if got := (<-stale).MustRender("hello", "x"); got != "Hello x" {
		t.Fatalf("stale build rendered %q", got)
	}

	b, err = c.Get(context.Background(), greetingSet, locale.Root, strict)
	h.AssertNoError(err)
	if got := b.MustRender("hello", "x"); got != "Hi x" {
		t.Fatalf("hello after stale build finished = %q", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheResetDuringBuild(t *testing.T) {
	s := &countingStore{
		next:    greetingStore(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewCache(s, WithLogger(quietLogger()))
	strict := Configuration{}
	h := erm.NewTestHelper(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
		done <- err
	}()

	<-s.started
	c.Reset()
	close(s.release)
	h.AssertNoError(<-done)

	if c.Len() != 0 {
		t.Fatalf("bundle built before Reset was cached, Len() = %d", c.Len())
	}
	_, err := c.Get(context.Background(), greetingSet, locale.Root, strict)
	h.AssertNoError(err)
	if n := s.fetches.Load(); n != 2 {
		t.Fatalf("store fetched %d times, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheKeyIgnoresVariantCase(t *testing.T) {
	s := &countingStore{next: greetingStore()}
	c := NewCache(s, WithLogger(quietLogger()))
	h := erm.NewTestHelper(t)

	a, err := c.Get(context.Background(), greetingSet, locale.New("ja", "jp", "jp"), DefaultConfiguration())
	h.AssertNoError(err)
	b, err := c.Get(context.Background(), greetingSet, locale.MustParse("ja_JP_JP"), DefaultConfiguration())
	h.AssertNoError(err)

	if a != b || c.Len() != 1 {
		t.Fatalf("same suffix chain built %d bundles", c.Len())
	}
	if n := s.fetches.Load(); n != 4 {
		t.Fatalf("store fetched %d times, want one chain of 4", n)
	}
}

func TestCacheKeyIgnoresConfiguration(t *testing.T) {
	c := NewCache(greetingStore(), WithLogger(quietLogger()))
	ctx := context.Background()

	strict, err := c.Get(ctx, greetingSet, locale.MustParse("fr"), Configuration{})
	erm.NewTestHelper(t).AssertNoError(err)
	lenient, err := c.Get(ctx, greetingSet, locale.MustParse("fr"), LenientConfiguration())
	erm.NewTestHelper(t).AssertNoError(err)
	if strict != lenient {
		t.Fatal("configuration must not be part of the cache key")
	}
}

func TestDefaultCache(t *testing.T) {
	t.Cleanup(func() { SetDefaultStore(store.NewMapStore()) })
	SetDefaultStore(greetingStore())
	h := erm.NewTestHelper(t)

	b, err := Load(context.Background(), greetingSet, locale.MustParse("fr_CA"), DefaultConfiguration())
	h.AssertNoError(err)
	got, err := Invoke(b, "hello", "Marie")
	h.AssertNoError(err)
	if got != "Bonjour Marie" {
		t.Fatalf("hello = %q", got)
	}
	if GetInstance().Len() != 1 {
		t.Fatalf("default cache Len() = %d", GetInstance().Len())
	}

	ResetCache()
	if GetInstance().Len() != 0 {
		t.Fatal("ResetCache should empty the default cache")
	}
}

func TestService(t *testing.T) {
	c := NewCache(greetingStore(), WithLogger(quietLogger()))
	svc := NewService(c, DefaultConfiguration(), locale.MustParse("en"))
	h := erm.NewTestHelper(t)

	b, err := svc.Get(context.Background(), greetingSet)
	h.AssertNoError(err)
	if got := b.MustRender("hello", "you"); got != "Hello you" {
		t.Fatalf("fallback hello = %q", got)
	}

	ctx := locale.WithLocale(context.Background(), locale.MustParse("fr_BE"))
	b, err = svc.Get(ctx, greetingSet)
	h.AssertNoError(err)
	if got := b.MustRender("hello", "toi"); got != "Bonjour toi" {
		t.Fatalf("context hello = %q", got)
	}
	if b.Locale() != locale.MustParse("fr_BE") {
		t.Fatalf("Locale() = %v", b.Locale())
	}

	b, err = svc.GetFor(context.Background(), greetingSet, locale.MustParse("fr"))
	h.AssertNoError(err)
	if got := b.MustRender("files", 0); got != "aucun fichier" {
		t.Fatalf("files = %q", got)
	}

	if svc.Cache() != c || svc.Fallback() != locale.MustParse("en") || !svc.Configuration().AllowFallback {
		t.Fatal("service accessors do not reflect construction")
	}
	if NewService(nil, Configuration{}, locale.Root).Cache() != GetInstance() {
		t.Fatal("nil cache should use the default instance")
	}
}
