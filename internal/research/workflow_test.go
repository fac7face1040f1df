package research

import (
	"testing"
)

func TestParseDraftMapsEmptyNumericsToAbsent(t *testing.T) {
	t.Parallel()

	draft, errs := ParseDraft(DraftForm{
		Title:   "Test Alpha",
		Content: "body",
		Pair:    "EUR/USD",
		Mean:    "1.0825",
		Stdev:   "",
	})
	if errs != nil {
		t.Fatalf("ParseDraft returned errors: %v", errs)
	}

	if draft.Mean == nil || *draft.Mean != 1.0825 {
		t.Fatalf("expected mean 1.0825, got %v", draft.Mean)
	}

	for name, field := range map[string]*float64{
		"median": draft.Median, "mode": draft.Mode, "variance": draft.Variance, "stdev": draft.Stdev,
	} {
		if field != nil {
			t.Errorf("expected %s to be absent, got %v", name, *field)
		}
	}
}

func TestParseDraftRejectsMalformedNumbers(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"abc", "1.2.3", "NaN", "Inf", "-Inf"} {
		_, errs := ParseDraft(DraftForm{Title: "t", Content: "c", Pair: "p", Variance: raw})
		if errs == nil {
			t.Errorf("expected field error for variance %q", raw)
			continue
		}
		if _, ok := errs["variance"]; !ok {
			t.Errorf("expected variance error for %q, got %v", raw, errs)
		}
	}
}

func TestParseDraftDefaultsPositionToLong(t *testing.T) {
	t.Parallel()

	draft, errs := ParseDraft(DraftForm{Title: "t", Content: "c", Pair: "p"})
	if errs != nil {
		t.Fatalf("ParseDraft returned errors: %v", errs)
	}
	if draft.Position != PositionLong {
		t.Fatalf("expected default position long, got %q", draft.Position)
	}

	if _, errs := ParseDraft(DraftForm{Title: "t", Content: "c", Pair: "p", Position: "sideways"}); errs == nil {
		t.Fatalf("expected error for unknown position")
	}
}

func TestDraftValidateRequiresCoreFields(t *testing.T) {
	t.Parallel()

	errs := Draft{Position: PositionLong}.Validate()
	if errs == nil {
		t.Fatalf("expected validation errors for empty draft")
	}

	for _, field := range []string{"title", "content", "pair"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for field %q, got %v", field, errs)
		}
	}

	valid := Draft{Title: "t", Content: "c", Pair: "EUR/USD", Position: PositionShort}
	if errs := valid.Validate(); errs != nil {
		t.Fatalf("expected no errors for valid draft, got %v", errs)
	}
}

func TestDraftValidateRejectsTitlesWithoutSlugContent(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"!!!", "???", "¡™£"} {
		errs := Draft{Title: title, Content: "c", Pair: "EUR/USD", Position: PositionLong}.Validate()
		if errs == nil {
			t.Errorf("expected validation error for title %q", title)
			continue
		}
		if errs["title"] != "must contain a letter or digit" {
			t.Errorf("expected slug-content error for title %q, got %v", title, errs)
		}
	}
}

func TestWorkflowNewDraftLifecycle(t *testing.T) {
	t.Parallel()

	w := NewWorkflow()
	if w.State() != StateIdle {
		t.Fatalf("expected initial state idle, got %q", w.State())
	}

	if err := w.OpenNew(); err != nil {
		t.Fatalf("OpenNew returned error: %v", err)
	}
	if w.State() != StateDraftingNew {
		t.Fatalf("expected drafting-new, got %q", w.State())
	}
	if w.Draft().Position != PositionLong {
		t.Fatalf("expected position defaulted to long, got %q", w.Draft().Position)
	}

	draft := Draft{Title: "Test Alpha", Content: "body", Pair: "EUR/USD", Position: PositionLong}
	if err := w.SetDraft(draft); err != nil {
		t.Fatalf("SetDraft returned error: %v", err)
	}

	submitted, err := w.Submit()
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if submitted.Title != "Test Alpha" {
		t.Fatalf("expected submitted draft to carry title, got %q", submitted.Title)
	}
	if w.State() != StateSubmitting {
		t.Fatalf("expected submitting, got %q", w.State())
	}

	if err := w.Succeed(); err != nil {
		t.Fatalf("Succeed returned error: %v", err)
	}
	if w.State() != StateIdle {
		t.Fatalf("expected idle after success, got %q", w.State())
	}
	if w.Draft().Title != "" {
		t.Fatalf("expected draft discarded after success, got %q", w.Draft().Title)
	}
}

func TestWorkflowFailedSubmitPreservesDraft(t *testing.T) {
	t.Parallel()

	article := &Article{ID: "a-1", Title: "Original", Content: "body", Pair: "GBP/JPY", Position: PositionShort}

	w := NewWorkflow()
	if err := w.OpenEdit(article); err != nil {
		t.Fatalf("OpenEdit returned error: %v", err)
	}
	if w.State() != StateDraftingEdit {
		t.Fatalf("expected drafting-edit, got %q", w.State())
	}
	if w.EditingID() != "a-1" {
		t.Fatalf("expected editing id a-1, got %q", w.EditingID())
	}

	if _, err := w.Submit(); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if err := w.Fail(); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if w.State() != StateDraftingEdit {
		t.Fatalf("expected return to drafting-edit on failure, got %q", w.State())
	}
	if w.Draft().Title != "Original" {
		t.Fatalf("expected draft preserved for retry, got %q", w.Draft().Title)
	}
}

func TestWorkflowRejectsSubmitWithMissingTitle(t *testing.T) {
	t.Parallel()

	w := NewWorkflow()
	if err := w.OpenNew(); err != nil {
		t.Fatalf("OpenNew returned error: %v", err)
	}
	if err := w.SetDraft(Draft{Content: "body", Pair: "EUR/USD", Position: PositionLong}); err != nil {
		t.Fatalf("SetDraft returned error: %v", err)
	}

	if _, err := w.Submit(); err == nil {
		t.Fatalf("expected validation error for missing title")
	}
	if w.State() != StateDraftingNew {
		t.Fatalf("expected to stay in drafting-new, got %q", w.State())
	}
}

func TestWorkflowSubmitLockBlocksDoubleSubmission(t *testing.T) {
	t.Parallel()

	w := NewWorkflow()
	if err := w.OpenNew(); err != nil {
		t.Fatalf("OpenNew returned error: %v", err)
	}
	if err := w.SetDraft(Draft{Title: "t", Content: "c", Pair: "p", Position: PositionLong}); err != nil {
		t.Fatalf("SetDraft returned error: %v", err)
	}

	if _, err := w.Submit(); err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}

	if _, err := w.Submit(); err == nil {
		t.Fatalf("expected second Submit to be rejected while in flight")
	}

	if err := w.OpenNew(); err == nil {
		t.Fatalf("expected OpenNew to be rejected while submitting")
	}

	if err := w.Cancel(); err == nil {
		t.Fatalf("expected Cancel to be rejected while submitting")
	}
}

func TestWorkflowInvalidTransitions(t *testing.T) {
	t.Parallel()

	w := NewWorkflow()

	if _, err := w.Submit(); err == nil {
		t.Errorf("expected Submit from idle to fail")
	}
	if err := w.Succeed(); err == nil {
		t.Errorf("expected Succeed from idle to fail")
	}
	if err := w.Fail(); err == nil {
		t.Errorf("expected Fail from idle to fail")
	}
	if err := w.SetDraft(Draft{}); err == nil {
		t.Errorf("expected SetDraft from idle to fail")
	}
	if err := w.OpenEdit(nil); err == nil {
		t.Errorf("expected OpenEdit with nil article to fail")
	}
}

func TestOpenNewClearsStaleDraft(t *testing.T) {
	t.Parallel()

	w := NewWorkflow()
	if err := w.OpenEdit(&Article{ID: "a-1", Title: "Old", Content: "c", Pair: "p", Position: PositionLong}); err != nil {
		t.Fatalf("OpenEdit returned error: %v", err)
	}

	if err := w.OpenNew(); err != nil {
		t.Fatalf("OpenNew returned error: %v", err)
	}

	if w.Draft().Title != "" || w.EditingID() != "" {
		t.Fatalf("expected stale draft cleared, got %+v editing %q", w.Draft(), w.EditingID())
	}
}
