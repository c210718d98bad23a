package lyrics

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	name      string
	available bool
	plain     string
	synced    string
	err       error
	calls     int
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return s.available }

func (s *stubProvider) SearchLyrics(ctx context.Context, artist, title, album string) (string, error) {
	s.calls++
	return s.plain, s.err
}

func (s *stubProvider) SearchSynced(ctx context.Context, artist, title string) (string, error) {
	return s.synced, nil
}

var goodLyrics = strings.Repeat("A perfectly ordinary lyric line about the starlight\n", 3)

func TestSearchUsesConfiguredOrder(t *testing.T) {
	first := &stubProvider{name: "lrclib", available: true, plain: goodLyrics, synced: "[00:01.00]line"}
	second := &stubProvider{name: "genius", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{second, first}, "lrclib", []string{"genius"})
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Source != "lrclib" {
		t.Fatalf("result = %+v", result)
	}
	if result.Synced == "" {
		t.Fatal("synced lyrics lost")
	}
	if second.calls != 0 {
		t.Fatal("fallback provider must not be queried when the primary hits")
	}
}

func TestSearchOverrideMovesSourceToFront(t *testing.T) {
	lrclib := &stubProvider{name: "lrclib", available: true, plain: goodLyrics}
	genius := &stubProvider{name: "genius", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{lrclib, genius}, "lrclib", []string{"genius"})
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight", PreferredSource: "genius"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != "genius" {
		t.Fatalf("source = %q, want override to win", result.Source)
	}
	if lrclib.calls != 0 {
		t.Fatal("configured primary must not be queried before the override")
	}
}

func TestSearchSkipsUnavailableProviders(t *testing.T) {
	genius := &stubProvider{name: "genius", available: false, plain: goodLyrics}
	ovh := &stubProvider{name: "ovh", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{genius, ovh}, "genius", []string{"ovh"})
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != "ovh" {
		t.Fatalf("source = %q", result.Source)
	}
	if genius.calls != 0 {
		t.Fatal("unavailable provider must be skipped entirely")
	}
}

func TestSearchFallsThroughOnProviderError(t *testing.T) {
	failing := &stubProvider{name: "lrclib", available: true, err: errors.New("boom")}
	backup := &stubProvider{name: "ovh", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{failing, backup}, "lrclib", []string{"ovh"})
	var warnings []string
	r.OnWarning = func(msg string) { warnings = append(warnings, msg) }

	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != "ovh" {
		t.Fatalf("source = %q", result.Source)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestSearchInstrumentalShortCircuits(t *testing.T) {
	instrumental := &stubProvider{name: "lrclib", available: true, err: ErrInstrumental}
	backup := &stubProvider{name: "ovh", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{instrumental, backup}, "lrclib", []string{"ovh"})
	_, err := r.Search(context.Background(), Request{Artist: "A", Title: "B"})
	if !errors.Is(err, ErrInstrumental) {
		t.Fatalf("err = %v", err)
	}
	if backup.calls != 0 {
		t.Fatal("instrumental verdict must stop the search")
	}
}

func TestSearchRejectsInvalidResults(t *testing.T) {
	junk := &stubProvider{name: "lrclib", available: true, plain: "x"}
	r := NewResolver([]Provider{junk}, "lrclib", nil)

	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if result != nil {
		t.Fatalf("invalid lyrics must be rejected, got %+v", result)
	}
}

func TestSearchCleanToggle(t *testing.T) {
	marked := "[Chorus]\n" + goodLyrics
	provider := &stubProvider{name: "lrclib", available: true, plain: marked}

	r := NewResolver([]Provider{provider}, "lrclib", nil)
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.Plain, "[Chorus]") {
		t.Fatal("section markers must be stripped by default")
	}

	r.CleanLyrics = false
	result, err = r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Plain, "[Chorus]") {
		t.Fatal("disabling cleaning must pass provider output through verbatim")
	}
}

func TestSearchConfidenceFloorFallsThrough(t *testing.T) {
	// long enough to pass validation but shares no words with the title
	offTopic := strings.Repeat("completely unrelated verse content here\n", 3)
	weak := &stubProvider{name: "lrclib", available: true, plain: offTopic}
	strong := &stubProvider{name: "ovh", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{weak, strong}, "lrclib", []string{"ovh"})
	r.MinConfidence = 0.5

	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Source != "ovh" {
		t.Fatalf("result = %+v, want the low-confidence hit skipped", result)
	}
	if result.Confidence < 0.5 {
		t.Fatalf("confidence = %.2f", result.Confidence)
	}
}

func TestSearchNotFound(t *testing.T) {
	empty := &stubProvider{name: "lrclib", available: true}
	r := NewResolver([]Provider{empty}, "lrclib", nil)

	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "B"})
	if err != nil || result != nil {
		t.Fatalf("result=%+v err=%v", result, err)
	}
}

type flakyProvider struct {
	stubProvider
	failures int
}

func (f *flakyProvider) SearchLyrics(ctx context.Context, artist, title, album string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("upstream 500")
	}
	return f.plain, nil
}

func TestSearchRetriesFailingProviderUpToMaxAttempts(t *testing.T) {
	flaky := &flakyProvider{
		stubProvider: stubProvider{name: "lrclib", available: true, plain: goodLyrics},
		failures:     2,
	}

	r := NewResolver([]Provider{flaky}, "lrclib", nil)
	r.MaxAttempts = 3
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Source != "lrclib" {
		t.Fatalf("result = %+v", result)
	}
	if flaky.calls != 3 {
		t.Fatalf("calls = %d, want the two failures retried", flaky.calls)
	}
}

func TestSearchWithoutAttemptBudgetMovesOnAfterOneFailure(t *testing.T) {
	flaky := &flakyProvider{
		stubProvider: stubProvider{name: "lrclib", available: true, plain: goodLyrics},
		failures:     1,
	}
	fallback := &stubProvider{name: "ovh", available: true, plain: goodLyrics}

	r := NewResolver([]Provider{flaky, fallback}, "lrclib", []string{"ovh"})
	result, err := r.Search(context.Background(), Request{Artist: "A", Title: "Starlight"})
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Source != "ovh" {
		t.Fatalf("result = %+v", result)
	}
	if flaky.calls != 1 {
		t.Fatalf("calls = %d, want a single attempt by default", flaky.calls)
	}
}
