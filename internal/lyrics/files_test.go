package lyrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterWritesBothFormats(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, true, 200)

	result := &Result{Plain: "plain lyrics", Synced: "[00:01.00]line"}
	txtPath, lrcPath, err := w.Write(dir, 3, "Muse", "Starlight", result)
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Base(txtPath) != "03 - Muse - Starlight.txt" {
		t.Fatalf("txt = %q", txtPath)
	}
	if filepath.Base(lrcPath) != "03 - Muse - Starlight.lrc" {
		t.Fatalf("lrc = %q", lrcPath)
	}

	content, err := os.ReadFile(txtPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "plain lyrics\n" {
		t.Fatalf("txt content = %q", content)
	}
}

func TestWriterSkipsDisabledFormats(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false, 200)

	txtPath, lrcPath, err := w.Write(dir, 1, "A", "B", &Result{Plain: "p", Synced: "[00:01.00]s"})
	if err != nil {
		t.Fatal(err)
	}
	if txtPath == "" || lrcPath != "" {
		t.Fatalf("paths = %q / %q", txtPath, lrcPath)
	}
}

func TestWriterBacksUpExistingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false, 200)
	w.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }

	path := filepath.Join(dir, "01 - A - B.txt")
	if err := os.WriteFile(path, []byte("old version"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := w.Write(dir, 1, "A", "B", &Result{Plain: "new version"})
	if err != nil {
		t.Fatal(err)
	}

	backup := path + ".20260824-120000.bak"
	old, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(old) != "old version" {
		t.Fatalf("backup content = %q", old)
	}

	current, _ := os.ReadFile(path)
	if string(current) != "new version\n" {
		t.Fatalf("current content = %q", current)
	}
}

func TestWriterSanitizesNames(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false, 60)

	txtPath, _, err := w.Write(dir, 9, `AC/DC`, `Back In Black?`, &Result{Plain: "p"})
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(txtPath)
	if strings.ContainsAny(base, `/?<>\:*|"`) {
		t.Fatalf("unsafe characters in %q", base)
	}
}
