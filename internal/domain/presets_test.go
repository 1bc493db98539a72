package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestPresetDistributionScales(t *testing.T) {
	full, ok := PresetDistribution("yds")
	if !ok {
		t.Fatalf("expected yds preset")
	}
	total := 0
	for _, cc := range full {
		total += cc.Count
	}
	if total != 80 {
		t.Fatalf("expected 80 questions in full preset, got %d", total)
	}

	mini, _ := PresetDistribution("mini-yds")
	for _, cc := range mini {
		if cc.Count < 1 {
			t.Fatalf("category %s dropped below one question", cc.Category)
		}
		if cc.Category == "Reductions" && cc.Count != 1 {
			t.Fatalf("expected Reductions rounded to 1, got %d", cc.Count)
		}
		if cc.Category == "Grammar Revision" && cc.Count != 4 {
			t.Fatalf("expected Grammar Revision 4, got %d", cc.Count)
		}
	}

	if _, ok := PresetDistribution("unknown"); ok {
		t.Fatalf("unknown preset should not resolve")
	}
}

func TestTemplateDistributionSplitsRemainder(t *testing.T) {
	tpl, ok := TemplateByID("advanced-grammar")
	if !ok {
		t.Fatalf("expected template")
	}
	dist := tpl.Distribution()
	if len(dist) != 3 || dist[0].Count != 7 || dist[1].Count != 7 || dist[2].Count != 6 {
		t.Fatalf("unexpected distribution %+v", dist)
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("join room: %w", ErrAlreadyStarted)
	if !errors.Is(wrapped, ErrAlreadyStarted) {
		t.Fatalf("expected wrapped sentinel to match")
	}
	if KindOf(wrapped) != KindAlreadyStarted {
		t.Fatalf("unexpected kind %s", KindOf(wrapped))
	}
	if HTTPStatus(ErrNotAdmin) != http.StatusForbidden {
		t.Fatalf("expected 403 for not admin")
	}
	if HTTPStatus(&Error{Kind: KindNotFound, Message: "room not found", Err: errors.New("no rows")}) != http.StatusNotFound {
		t.Fatalf("expected 404 for wrapped not found")
	}
	internal := errors.New("connection refused")
	if HTTPStatus(internal) != http.StatusInternalServerError || MessageOf(internal) != "internal server error" {
		t.Fatalf("internal errors must not leak")
	}
	if errors.Is(ErrNotActive, ErrNotWaiting) {
		t.Fatalf("distinct sentinels of one kind must not match")
	}
}
