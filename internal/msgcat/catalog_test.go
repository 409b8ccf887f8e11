package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	msg, err := c.Render("battle.levy.msg", nil)
	if err != nil || msg == "" {
		t.Fatalf("battle.levy.msg: %q %v", msg, err)
	}

	promo, err := c.Render("rank.promotion", map[string]any{"Title": "Optio"})
	if err != nil {
		t.Fatalf("rank.promotion: %v", err)
	}
	if !strings.Contains(promo, "Optio") {
		t.Fatalf("promotion text missing title: %q", promo)
	}
}

func TestRenderMissingKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if got := c.MustRender("no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("MustRender = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := "battle:\n  levy:\n    msg: \"Custom rout text\"\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New with overrides: %v", err)
	}
	if got, _ := c.Render("battle.levy.msg", nil); got != "Custom rout text" {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their embedded values.
	if got, _ := c.Render("battle.levy.sub", nil); got == "" {
		t.Fatal("embedded sibling key lost")
	}
}
