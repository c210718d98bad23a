package config

import "testing"

func TestValidateDefaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Directory = ""
	cfg.Output.Format = "ogg"
	cfg.Output.Concurrency = 0
	cfg.Output.BitrateKbps = 9000
	cfg.Audio.MaxDurationS = 10
	cfg.Lyrics.PrimarySource = "pastebin"
	cfg.Lyrics.SimilarityThreshold = 2
	cfg.Naming.MaxFilenameLength = 5
	cfg.Metadata.Encoding = "ebcdic"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	validationErr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Problems) < 6 {
		t.Fatalf("expected multiple problems, got %v", validationErr.Problems)
	}
}

func TestValidateLyricsDisabledSkipsLyricsChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lyrics.Enabled = false
	cfg.Lyrics.PrimarySource = "pastebin"
	if err := Validate(cfg); err != nil {
		t.Fatalf("lyrics checks should be skipped when disabled, got %v", err)
	}
}
