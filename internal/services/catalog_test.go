package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogCollections(t *testing.T) {
	catalog := testCatalog()

	summaries := catalog.Collections()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(summaries))
	}
	if summaries[0].URL != "/cases/revolution-case" {
		t.Errorf("unexpected url %s", summaries[0].URL)
	}

	c, ok := catalog.Collection("the-anubis-collection")
	if !ok || len(c.Items) != 2 {
		t.Fatalf("expected anubis collection with 2 items, got %+v", c)
	}
	if _, ok := catalog.Collection("missing"); ok {
		t.Error("expected unknown collection to be absent")
	}
	if catalog.ItemCount() != 4 {
		t.Errorf("expected 4 item rows, got %d", catalog.ItemCount())
	}
}

func TestNewCatalogServiceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cases.json")
	data := `[{"id":"kilowatt-case","name":"Kilowatt Case","image":"k.png","type":"case","items":[{"name":"AK-47 | Inheritance","rarity":"Covert","image":"i.png"}]}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	catalog, err := NewCatalogService(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if got := catalog.Search("inheritance", 10); len(got) != 1 || got[0].Rarity != "Covert" {
		t.Errorf("unexpected search result %+v", got)
	}

	missing, err := NewCatalogService(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("expected missing catalog to be tolerated, got %v", err)
	}
	if len(missing.Collections()) != 0 {
		t.Error("expected empty catalog")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := NewCatalogService(bad); err == nil {
		t.Error("expected parse error for malformed catalog")
	}
}

func TestIconIndexLookup(t *testing.T) {
	idx := NewIconIndex(testCatalog(), 0)

	tests := []struct {
		name     string
		expected string
		ok       bool
	}{
		{"AK-47 | Redline", "https://img.example/redline.png", true},
		{"AK-47 | Redline (Field-Tested)", "https://img.example/redline.png", true},
		{"StatTrak™ AK-47 | Redline (Minimal Wear)", "https://img.example/redline.png", true},
		{"Revolution Case", "https://img.example/revolution.png", true},
		{"M4A4 | Howl (Factory New)", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			icon, ok := idx.Lookup(tt.name)
			if ok != tt.ok || icon != tt.expected {
				t.Errorf("Lookup(%q) = %q, %v; want %q, %v", tt.name, icon, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestIconIndexLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/skins.json":
			fmt.Fprint(w, `[
				{"name":"M4A4 | Howl","market_hash_name":"M4A4 | Howl (Factory New)","image":"https://img.example/howl.png"},
				{"name":"AK-47 | Redline","image":"https://img.example/other-redline.png"},
				{"name":"No Image"}
			]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	idx := NewIconIndex(testCatalog(), 0)
	before := idx.Size()
	idx.LoadRemote(context.Background(), server.URL+"/missing.json", server.URL+"/skins.json")

	if idx.Size() != before+2 {
		t.Errorf("expected 2 new names, got %d", idx.Size()-before)
	}
	if icon, ok := idx.Lookup("StatTrak™ M4A4 | Howl (Minimal Wear)"); !ok || icon != "https://img.example/howl.png" {
		t.Errorf("expected remote icon via cleaned name, got %q", icon)
	}
	if icon, _ := idx.Lookup("AK-47 | Redline"); icon != "https://img.example/redline.png" {
		t.Errorf("expected catalog icon to be kept, got %q", icon)
	}

	version := idx.Version()
	idx.LoadRemote(context.Background(), server.URL+"/skins.json")
	if idx.Version() != version {
		t.Errorf("expected version to stay at %d when nothing new is merged, got %d", version, idx.Version())
	}
}
