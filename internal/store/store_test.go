package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/valpere/subtran/internal/detector"
	"github.com/valpere/subtran/internal/glossary"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_AddAndListGlossaryTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddGlossaryTerm(ctx, "en", "cn", "  Leader Star ", "引领者之星"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}
	if _, err := s.AddGlossaryTerm(ctx, "", "", "Kyiv", "基辅"); err != nil {
		t.Fatalf("AddGlossaryTerm failed: %v", err)
	}

	all, err := s.ListGlossaryTerms(ctx, "", "")
	if err != nil {
		t.Fatalf("ListGlossaryTerms failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].SourceTerm != "Leader Star" {
		t.Errorf("expected trimmed source term, got %q", all[0].SourceTerm)
	}

	filtered, err := s.ListGlossaryTerms(ctx, "en", "cn")
	if err != nil {
		t.Fatalf("ListGlossaryTerms failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("expected 1 filtered entry, got %d", len(filtered))
	}
}

func TestStore_AddGlossaryTerm_ReplacesDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddGlossaryTerm(ctx, "en", "cn", "star", "星"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddGlossaryTerm(ctx, "en", "cn", "star", "明星"); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListGlossaryTerms(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TargetTerm != "明星" {
		t.Errorf("expected the replacement to win, got %+v", entries)
	}
}

func TestStore_AddGlossaryTerm_Empty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddGlossaryTerm(context.Background(), "", "", " ", "x"); err == nil {
		t.Error("expected error for blank source term")
	}
}

func TestStore_DeleteGlossaryTerm(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddGlossaryTerm(ctx, "", "", "star", "星")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGlossaryTerm(ctx, id); err != nil {
		t.Fatalf("DeleteGlossaryTerm failed: %v", err)
	}
	if err := s.DeleteGlossaryTerm(ctx, id); err == nil {
		t.Error("expected error deleting a missing entry")
	}
}

func TestStore_ImportAndGlossaryTerms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.ImportGlossaryTerms(ctx, []glossary.Term{
		{Pattern: "Leader Star", Replacement: "引领者之星", SourceLang: detector.English, TargetLang: detector.Chinese},
		{Pattern: "roadmap", Replacement: "路线图"},
		{Pattern: " ", Replacement: "skipped"},
	})
	if err != nil {
		t.Fatalf("ImportGlossaryTerms failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported terms, got %d", n)
	}

	terms, err := s.GlossaryTerms(ctx)
	if err != nil {
		t.Fatalf("GlossaryTerms failed: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(terms))
	}

	var found bool
	for _, term := range terms {
		if term.Pattern == "Leader Star" {
			found = true
			if term.SourceLang != detector.English || term.TargetLang != detector.Chinese {
				t.Errorf("languages not preserved: %+v", term)
			}
		}
	}
	if !found {
		t.Error("imported term missing")
	}
}

func TestStore_FeedsGlossaryMatcher(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.AddGlossaryTerm(ctx, "", "", "Kyiv", "基辅"); err != nil {
		t.Fatal(err)
	}

	m := glossary.NewMatcher(glossary.LoaderConfig{Terms: s}, nil)
	if _, err := m.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Contains("kyiv") {
		t.Error("expected stored term in matcher index")
	}
}
