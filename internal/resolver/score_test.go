package resolver

import (
	"testing"

	"github.com/jaa/playlist-mirror/internal/ytmusic"
)

func TestScoreExactMatch(t *testing.T) {
	req := Request{Artist: "Daft Punk", Title: "Get Lucky", DurationS: 248}
	cand := ytmusic.Candidate{
		ID:             "v1",
		Title:          "Get Lucky",
		Artist:         "Daft Punk",
		DurationS:      250,
		Official:       true,
		VerifiedArtist: true,
	}

	got := score(req, cand, Options{})
	// 40 title + 30 artist + 20 duration + 7 bonus
	if got != 97 {
		t.Fatalf("score = %v, want 97", got)
	}
}

func TestDurationScoreShapes(t *testing.T) {
	tests := []struct {
		name   string
		target int
		cand   int
		want   float64
	}{
		{"unknown target", 0, 200, 10},
		{"within tolerance", 200, 210, 20},
		{"at tolerance", 200, 215, 20},
		{"midway decay", 200, 230, 10},
		{"at 3x tolerance", 200, 245, 0},
		{"far off", 200, 400, 0},
		{"candidate unknown", 200, 0, 0},
	}

	for _, tt := range tests {
		if got := durationScore(tt.target, tt.cand, 15); got != tt.want {
			t.Errorf("%s: durationScore = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestArtistScoreFeaturedFallback(t *testing.T) {
	req := Request{Artist: "Dua Lipa", Title: "Cold Heart", DurationS: 203}

	channelOnly := ytmusic.Candidate{Title: "Cold Heart", Artist: "Elton John", DurationS: 203}
	withFeat := ytmusic.Candidate{Title: "Cold Heart", Artist: "Elton John feat. Dua Lipa", DurationS: 203}

	low := score(req, channelOnly, Options{})
	high := score(req, withFeat, Options{})
	if high <= low {
		t.Fatalf("featured credit should lift the artist score: %v vs %v", low, high)
	}
	// the featured name is an exact artist match
	if high < 85 {
		t.Fatalf("score with exact featured match = %v", high)
	}
}

func TestQualityBonusClamp(t *testing.T) {
	cand := ytmusic.Candidate{Live: true, Karaoke: true, Cover: true, Remix: true}
	opts := Options{ExcludeLive: true, ExcludeCovers: true}
	if got := qualityBonus(cand, opts); got != -10 {
		t.Fatalf("bonus = %v, want clamp at -10", got)
	}
}

func TestQualityBonusRespectsOptions(t *testing.T) {
	live := ytmusic.Candidate{Live: true}
	if got := qualityBonus(live, Options{}); got != 0 {
		t.Fatalf("live penalty should only apply when excluded, got %v", got)
	}

	mv := ytmusic.Candidate{MusicVideo: true}
	if got := qualityBonus(mv, Options{PreferOfficial: true}); got != -1 {
		t.Fatalf("music video penalty = %v, want -1", got)
	}
}

func TestScoreMonotonicInTitleSimilarity(t *testing.T) {
	req := Request{Artist: "Artist", Title: "Exact Song Title", DurationS: 200}
	close := ytmusic.Candidate{Title: "Exact Song Title", Artist: "Artist", DurationS: 200}
	far := ytmusic.Candidate{Title: "Completely Different", Artist: "Artist", DurationS: 200}

	if score(req, close, Options{}) <= score(req, far, Options{}) {
		t.Fatal("closer title must score higher")
	}
}
