package types

import (
	"errors"
	"testing"
)

func TestClassNameFor(t *testing.T) {
	if got := ClassNameFor(0); got != "title" {
		t.Errorf("class 0 = %q, want title", got)
	}
	if got := ClassNameFor(9); got != "formula_caption" {
		t.Errorf("class 9 = %q, want formula_caption", got)
	}
	for _, id := range []int{-1, 10, 99} {
		if got := ClassNameFor(id); got != "plain_text" {
			t.Errorf("class %d = %q, want plain_text", id, got)
		}
	}
}

func TestTranslatableSubset(t *testing.T) {
	translatable := []string{"title", "plain_text", "figure_caption", "table_caption", "table_footnote", "formula_caption"}
	excluded := []string{"abandon", "figure", "table", "isolate_formula"}

	for _, name := range translatable {
		if !IsTranslatableClass(name) {
			t.Errorf("%s should be translatable", name)
		}
	}
	for _, name := range excluded {
		if IsTranslatableClass(name) {
			t.Errorf("%s should not be translatable", name)
		}
	}
}

func TestUsageAdd(t *testing.T) {
	a := TranslatorUsage{InputTokens: 10, OutputTokens: 4, TotalCost: 0.5}
	b := TranslatorUsage{InputTokens: 3, OutputTokens: 2, TotalCost: 0.25}
	got := a.Add(b)
	if got.InputTokens != 13 || got.OutputTokens != 6 || got.TotalCost != 0.75 {
		t.Errorf("sum = %+v", got)
	}
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("boom")
	err := NewPageError(ErrRenderFailed, "render failed", 3, cause)

	if err.Error() != "render failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap chain lost the cause")
	}
	if err.Page != 3 {
		t.Errorf("page = %d", err.Page)
	}

	if IsCancelled(err) {
		t.Error("render failure flagged as cancellation")
	}
	if !IsCancelled(NewError(ErrCancelled, "cancelled", nil)) {
		t.Error("cancellation not recognized")
	}
	if IsCancelled(errors.New("plain")) {
		t.Error("plain error flagged as cancellation")
	}
}
