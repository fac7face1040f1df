package research

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// WorkflowState enumerates the authoring dialog states. Making the machine
// explicit keeps combinations like "submitting with no draft" unrepresentable.
type WorkflowState string

const (
	StateIdle         WorkflowState = "idle"
	StateDraftingNew  WorkflowState = "drafting-new"
	StateDraftingEdit WorkflowState = "drafting-edit"
	StateSubmitting   WorkflowState = "submitting"
)

// Draft is the typed authoring form. Statistical fields are parsed exactly
// once; a nil pointer means the operator left the field empty.
type Draft struct {
	Title    string
	Content  string
	Pair     string
	Position Position

	Mean     *float64
	Median   *float64
	Mode     *float64
	Variance *float64
	Stdev    *float64
}

// DraftForm carries the raw text fields as submitted, before parsing.
type DraftForm struct {
	Title    string
	Content  string
	Pair     string
	Position string
	Mean     string
	Median   string
	Mode     string
	Variance string
	Stdev    string
}

// ValidationErrors maps field names to human-readable problems.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, field := range fields {
		b.WriteString(" ")
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(v[field])
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}

// ParseDraft converts the raw form into a typed draft. Empty numeric input
// maps to absent; malformed or non-finite numeric text is a field error, so
// nothing unparseable ever travels towards the store.
func ParseDraft(form DraftForm) (Draft, ValidationErrors) {
	errs := ValidationErrors{}

	draft := Draft{
		Title:   strings.TrimSpace(form.Title),
		Content: strings.TrimSpace(form.Content),
		Pair:    strings.TrimSpace(form.Pair),
	}

	switch Position(strings.TrimSpace(form.Position)) {
	case PositionShort:
		draft.Position = PositionShort
	case PositionLong, "":
		draft.Position = PositionLong
	default:
		errs["position"] = "must be long or short"
	}

	numeric := []struct {
		name  string
		raw   string
		field **float64
	}{
		{"mean", form.Mean, &draft.Mean},
		{"median", form.Median, &draft.Median},
		{"mode", form.Mode, &draft.Mode},
		{"variance", form.Variance, &draft.Variance},
		{"stdev", form.Stdev, &draft.Stdev},
	}

	for _, item := range numeric {
		raw := strings.TrimSpace(item.raw)
		if raw == "" {
			continue
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			errs[item.name] = "must be a finite number"
			continue
		}

		v := value
		*item.field = &v
	}

	if len(errs) > 0 {
		return draft, errs
	}
	return draft, nil
}

// Validate checks the submission requirements: title, content and pair must
// be non-empty. The statistical fields are optional.
func (d Draft) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if d.Title == "" {
		errs["title"] = "is required"
	} else if DeriveSlug(d.Title) == "" {
		// A slug-less title would produce an unroutable article.
		errs["title"] = "must contain a letter or digit"
	}
	if d.Content == "" {
		errs["content"] = "is required"
	}
	if d.Pair == "" {
		errs["pair"] = "is required"
	}
	if !d.Position.Valid() {
		errs["position"] = "must be long or short"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DraftFromArticle snapshots an existing article into a draft for editing.
func DraftFromArticle(a *Article) Draft {
	return Draft{
		Title:    a.Title,
		Content:  a.Content,
		Pair:     a.Pair,
		Position: a.Position,
		Mean:     copyFloat(a.Mean),
		Median:   copyFloat(a.Median),
		Mode:     copyFloat(a.Mode),
		Variance: copyFloat(a.Variance),
		Stdev:    copyFloat(a.Stdev),
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Workflow is the authoring state machine:
//
//	Idle -> DraftingNew  -> Submitting -> Idle        (success)
//	Idle -> DraftingEdit -> Submitting -> DraftingEdit (failure, draft kept)
//
// Submitting refuses re-entry, which doubles as the submit lock against
// double-clicked forms. Delete is a side channel and never touches this
// machine.
type Workflow struct {
	state     WorkflowState
	prior     WorkflowState
	draft     Draft
	editingID string
}

// NewWorkflow starts in Idle with no draft.
func NewWorkflow() *Workflow {
	return &Workflow{state: StateIdle}
}

// State exposes the current machine state.
func (w *Workflow) State() WorkflowState {
	return w.state
}

// Draft returns the current draft contents.
func (w *Workflow) Draft() Draft {
	return w.draft
}

// EditingID returns the id of the article being edited, or "" for a new draft.
func (w *Workflow) EditingID() string {
	return w.editingID
}

// OpenNew discards any stale draft and enters DraftingNew with the position
// defaulted to long.
func (w *Workflow) OpenNew() error {
	if w.state == StateSubmitting {
		return eris.New("cannot open a new draft while a submission is in flight")
	}

	w.state = StateDraftingNew
	w.draft = Draft{Position: PositionLong}
	w.editingID = ""
	return nil
}

// OpenEdit snapshots the article's fields into the draft and enters
// DraftingEdit. The slug is deliberately not part of the draft.
func (w *Workflow) OpenEdit(article *Article) error {
	if article == nil {
		return eris.New("article is required to open an edit draft")
	}
	if w.state == StateSubmitting {
		return eris.New("cannot open an edit draft while a submission is in flight")
	}

	w.state = StateDraftingEdit
	w.draft = DraftFromArticle(article)
	w.editingID = article.ID
	return nil
}

// SetDraft replaces the draft contents while a dialog is open.
func (w *Workflow) SetDraft(draft Draft) error {
	if w.state != StateDraftingNew && w.state != StateDraftingEdit {
		return eris.Errorf("cannot edit a draft in state %s", w.state)
	}

	w.draft = draft
	return nil
}

// Submit validates the draft and moves to Submitting. Required-field
// violations are rejected here, before any store call happens.
func (w *Workflow) Submit() (Draft, error) {
	switch w.state {
	case StateDraftingNew, StateDraftingEdit:
	case StateSubmitting:
		return Draft{}, eris.New("a submission is already in flight")
	default:
		return Draft{}, eris.Errorf("cannot submit from state %s", w.state)
	}

	if errs := w.draft.Validate(); errs != nil {
		return Draft{}, errs
	}

	w.prior = w.state
	w.state = StateSubmitting
	return w.draft, nil
}

// Succeed records a completed submission: the dialog closes and the draft is
// discarded. The caller re-fetches the list afterwards.
func (w *Workflow) Succeed() error {
	if w.state != StateSubmitting {
		return eris.Errorf("cannot complete a submission from state %s", w.state)
	}

	w.state = StateIdle
	w.prior = ""
	w.draft = Draft{}
	w.editingID = ""
	return nil
}

// Fail returns to the prior drafting state with the form contents preserved,
// so the operator can retry without retyping.
func (w *Workflow) Fail() error {
	if w.state != StateSubmitting {
		return eris.Errorf("cannot fail a submission from state %s", w.state)
	}

	w.state = w.prior
	w.prior = ""
	return nil
}

// Cancel closes the dialog and discards the draft.
func (w *Workflow) Cancel() error {
	if w.state == StateSubmitting {
		return eris.New("cannot cancel while a submission is in flight")
	}

	w.state = StateIdle
	w.prior = ""
	w.draft = Draft{}
	w.editingID = ""
	return nil
}
