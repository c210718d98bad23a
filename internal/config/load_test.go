package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(LoadOptions{WorkingDir: t.TempDir(), Env: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Format != FormatMP3 {
		t.Fatalf("default format = %q", cfg.Output.Format)
	}
	if cfg.Output.Concurrency != 3 {
		t.Fatalf("default concurrency = %d", cfg.Output.Concurrency)
	}
	if cfg.Audio.MinDurationS != 30 || cfg.Audio.MaxDurationS != 960 {
		t.Fatalf("default duration bounds = %d..%d", cfg.Audio.MinDurationS, cfg.Audio.MaxDurationS)
	}
}

func TestLoadMergesProjectFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	content := `
output:
  format: FLAC
  concurrency: 6
lyrics:
  fallback_sources: [ovh]
naming:
  replace_spaces: true
`
	if err := os.WriteFile(ProjectConfigPath(dir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{WorkingDir: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Format != FormatFLAC {
		t.Fatalf("format = %q", cfg.Output.Format)
	}
	if cfg.Output.Concurrency != 6 {
		t.Fatalf("concurrency = %d", cfg.Output.Concurrency)
	}
	if len(cfg.Lyrics.FallbackSources) != 1 || cfg.Lyrics.FallbackSources[0] != "ovh" {
		t.Fatalf("fallback sources = %v", cfg.Lyrics.FallbackSources)
	}
	if !cfg.Naming.ReplaceSpaces {
		t.Fatal("replace_spaces not merged")
	}
	// untouched values keep their defaults
	if cfg.Output.BitrateKbps != 192 {
		t.Fatalf("bitrate = %d", cfg.Output.BitrateKbps)
	}
}

func TestLoadExplicitPathRequired(t *testing.T) {
	_, err := Load(LoadOptions{
		WorkingDir:   t.TempDir(),
		ExplicitPath: filepath.Join(t.TempDir(), "nope.yaml"),
		Env:          map[string]string{},
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadEnvOverridesAndSecrets(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(LoadOptions{
		WorkingDir: t.TempDir(),
		Env: map[string]string{
			"PLMR_CONCURRENCY":      "8",
			"PLMR_FORMAT":           "m4a",
			"SPOTIFY_CLIENT_ID":     "id123",
			"SPOTIFY_CLIENT_SECRET": "secret456",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Concurrency != 8 {
		t.Fatalf("concurrency = %d", cfg.Output.Concurrency)
	}
	if cfg.Output.Format != FormatM4A {
		t.Fatalf("format = %q", cfg.Output.Format)
	}
	if cfg.SpotifyClientID != "id123" || cfg.SpotifyClientSecret != "secret456" {
		t.Fatal("secrets not picked up from env")
	}
}

func TestLoadInvalidEnvValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := Load(LoadOptions{
		WorkingDir: t.TempDir(),
		Env:        map[string]string{"PLMR_CONCURRENCY": "many"},
	})
	if err == nil {
		t.Fatal("expected error for bad PLMR_CONCURRENCY")
	}
}
