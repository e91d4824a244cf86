package i18n

import (
	"testing"
	"testing/fstest"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{"nav.about":"About","wizard.continue":"Continue"}`)},
		"ja.json": {Data: []byte(`{"nav.about":"概要"}`)},
	}
	b, err := Load(fsys, "en", []string{"en", "ja", "de"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := testBundle(t)
	if got := b.Resolve("ja;q=0.8, en;q=0.9"); got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
	if got := b.Resolve("ja-JP, en;q=0.5"); got != "ja" {
		t.Fatalf("expected ja, got %s", got)
	}
	if got := b.Resolve("fr"); got != "en" {
		t.Fatalf("expected fallback en, got %s", got)
	}
	if got := b.Resolve(""); got != "en" {
		t.Fatalf("expected fallback for empty header, got %s", got)
	}
}

func TestTranslateFallsBack(t *testing.T) {
	b := testBundle(t)
	if got := b.T("ja", "nav.about"); got != "概要" {
		t.Errorf("unexpected ja text %q", got)
	}
	if got := b.T("ja", "wizard.continue"); got != "Continue" {
		t.Errorf("expected fallback text, got %q", got)
	}
	if got := b.T("en", "missing.key"); got != "missing.key" {
		t.Errorf("expected key echo, got %q", got)
	}
	if b.IsSupported("de") {
		t.Error("de has no file and should not be supported")
	}
	if got := b.Supported(); len(got) != 2 {
		t.Errorf("unexpected supported list %v", got)
	}
}

func TestLoadRequiresFallback(t *testing.T) {
	if _, err := Load(fstest.MapFS{}, "en", nil); err == nil {
		t.Fatal("expected error when fallback file is missing")
	}
}
