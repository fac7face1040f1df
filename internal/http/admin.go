package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/auth"
	"traderesearch/app/internal/http/templates"
	"traderesearch/app/internal/research"
)

const slugTakenMessage = "A research paper with this title already exists. Choose a different title."

type articleForm struct {
	ID       string `form:"id"`
	Title    string `form:"title"`
	Content  string `form:"content"`
	Pair     string `form:"pair"`
	Position string `form:"position"`
	Mean     string `form:"mean"`
	Median   string `form:"median"`
	Mode     string `form:"mode"`
	Variance string `form:"variance"`
	Stdev    string `form:"stdev"`
}

type articleFormInput struct {
	RawBody huma.MultipartFormFiles[articleForm]
}

type confirmForm struct {
	Confirm string `form:"confirm"`
}

type deleteInput struct {
	ID      string `path:"id"`
	RawBody huma.MultipartFormFiles[confirmForm]
}

type idInput struct {
	ID string `path:"id"`
}

func (s *Server) registerAdminRoutes() {
	huma.Get(s.api, "/admin", s.adminDashboardHandler, htmlOperation(
		"Authoring dashboard",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/admin/new", s.adminNewHandler, htmlOperation(
		"Create form",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/admin/edit/{id}", s.adminEditHandler, htmlOperation(
		"Edit form",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/admin/save", s.adminSaveHandler, htmlOperation(
		"Save research paper",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusConflict,
		stdhttp.StatusUnprocessableEntity,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/admin/delete/{id}", s.adminDeleteHandler, htmlOperation(
		"Delete research paper",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) adminDashboardHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx); resp != nil {
		return resp, nil
	}

	articles := s.research.List(ctx)

	data := templates.AdminPageData{Nav: s.navFromContext(ctx)}
	data.Rows = make([]templates.AdminRowView, 0, len(articles))
	for _, article := range articles {
		data.Rows = append(data.Rows, templates.AdminRowView{
			ID:       article.ID,
			Title:    article.Title,
			Pair:     article.Pair,
			Position: strings.ToUpper(string(article.Position)),
			Date:     article.CreatedAt.Format(listDateFormat),
			Excerpt:  excerpt(article.Content),
		})
	}

	body, err := renderComponent(ctx, templates.AdminPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering admin dashboard", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) adminNewHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx); resp != nil {
		return resp, nil
	}

	workflow := research.NewWorkflow()
	if err := workflow.OpenNew(); err != nil {
		s.recordError(ctx, err, "opening create draft", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return s.renderAdminForm(ctx, stdhttp.StatusOK, templates.AdminFormData{
		Nav:    s.navFromContext(ctx),
		Values: formValuesFromDraft(workflow.Draft()),
	})
}

func (s *Server) adminEditHandler(ctx context.Context, input *idInput) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx); resp != nil {
		return resp, nil
	}

	article := s.research.GetByID(ctx, input.ID)
	if article == nil {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "Research paper not found.")
	}

	workflow := research.NewWorkflow()
	if err := workflow.OpenEdit(article); err != nil {
		s.recordError(ctx, err, "opening edit draft", logrus.Fields{"article_id": input.ID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return s.renderAdminForm(ctx, stdhttp.StatusOK, templates.AdminFormData{
		Nav:       s.navFromContext(ctx),
		Editing:   true,
		ArticleID: article.ID,
		Values:    formValuesFromDraft(workflow.Draft()),
		HasPDF:    article.PDFKey != nil,
	})
}

// adminSaveHandler drives one full pass of the authoring state machine. Every
// submission gets a fresh machine; the browser form is the draft's only home
// between requests.
func (s *Server) adminSaveHandler(ctx context.Context, input *articleFormInput) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx); resp != nil {
		return resp, nil
	}

	form := input.RawBody.Data()
	editing := strings.TrimSpace(form.ID) != ""

	formData := templates.AdminFormData{
		Nav:       s.navFromContext(ctx),
		Editing:   editing,
		ArticleID: strings.TrimSpace(form.ID),
		Values:    formValuesFromForm(form),
	}

	workflow := research.NewWorkflow()
	if editing {
		article := s.research.GetByID(ctx, formData.ArticleID)
		if article == nil {
			return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "Research paper not found.")
		}
		formData.HasPDF = article.PDFKey != nil

		if err := workflow.OpenEdit(article); err != nil {
			s.recordError(ctx, err, "opening edit draft", logrus.Fields{"article_id": formData.ArticleID})
			return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}
	} else if err := workflow.OpenNew(); err != nil {
		s.recordError(ctx, err, "opening create draft", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	draft, parseErrs := research.ParseDraft(research.DraftForm{
		Title:    form.Title,
		Content:  form.Content,
		Pair:     form.Pair,
		Position: form.Position,
		Mean:     form.Mean,
		Median:   form.Median,
		Mode:     form.Mode,
		Variance: form.Variance,
		Stdev:    form.Stdev,
	})
	if parseErrs != nil {
		formData.Error = parseErrs.Error()
		return s.renderAdminForm(ctx, stdhttp.StatusUnprocessableEntity, formData)
	}

	if err := workflow.SetDraft(draft); err != nil {
		s.recordError(ctx, err, "staging draft", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	submitted, err := workflow.Submit()
	if err != nil {
		var validationErrs research.ValidationErrors
		if eris.As(err, &validationErrs) {
			formData.Error = validationErrs.Error()
			return s.renderAdminForm(ctx, stdhttp.StatusUnprocessableEntity, formData)
		}

		s.recordError(ctx, err, "submitting draft", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	attachment, closeAttachment, err := s.attachmentFromForm(&input.RawBody)
	if err != nil {
		s.recordError(ctx, err, "reading uploaded attachment", nil)
		_ = workflow.Fail()
		formData.Error = "The uploaded file could not be read. Try again."
		return s.renderAdminForm(ctx, stdhttp.StatusUnprocessableEntity, formData)
	}
	defer closeAttachment()

	ident := researchIdentity(identityFromContext(ctx))

	var saveErr error
	if editing {
		_, saveErr = s.research.Update(ctx, ident, workflow.EditingID(), submitted, attachment)
	} else {
		_, saveErr = s.research.Create(ctx, ident, submitted, attachment)
	}

	if saveErr != nil {
		_ = workflow.Fail()

		switch {
		case eris.Is(saveErr, research.ErrSlugTaken):
			formData.Error = slugTakenMessage
			return s.renderAdminForm(ctx, stdhttp.StatusConflict, formData)
		case eris.Is(saveErr, research.ErrForbidden):
			return redirectResponse("/research?notice=access-denied"), nil
		default:
			s.recordError(ctx, saveErr, "saving research paper", logrus.Fields{"editing": editing})
			formData.Error = "Saving failed. Your entries are preserved; try again."
			return s.renderAdminForm(ctx, stdhttp.StatusInternalServerError, formData)
		}
	}

	if err := workflow.Succeed(); err != nil {
		s.recordError(ctx, err, "completing submission", nil)
	}

	return redirectResponse("/admin"), nil
}

func (s *Server) adminDeleteHandler(ctx context.Context, input *deleteInput) (*htmlResponse, error) {
	if resp := s.requireAdmin(ctx); resp != nil {
		return resp, nil
	}

	// Deletion requires the confirmation field; a bare POST changes nothing.
	if input.RawBody.Data().Confirm != "yes" {
		return redirectResponse("/admin"), nil
	}

	ident := researchIdentity(identityFromContext(ctx))
	if err := s.research.Delete(ctx, ident, input.ID); err != nil {
		if eris.Is(err, research.ErrForbidden) {
			return redirectResponse("/research?notice=access-denied"), nil
		}

		s.recordError(ctx, err, "deleting research paper", logrus.Fields{"article_id": input.ID})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return redirectResponse("/admin"), nil
}

func (s *Server) renderAdminForm(ctx context.Context, status int, data templates.AdminFormData) (*htmlResponse, error) {
	body, err := renderComponent(ctx, templates.AdminForm(data))
	if err != nil {
		s.recordError(ctx, err, "rendering admin form", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	return newHTMLResponse(status, body), nil
}

// attachmentFromForm pulls the optional "pdf" part out of the multipart body.
// A file input left empty submits a part with no filename; that counts as no
// attachment.
func (s *Server) attachmentFromForm(raw *huma.MultipartFormFiles[articleForm]) (*research.Attachment, func(), error) {
	noop := func() {}

	if raw == nil || raw.Form == nil {
		return nil, noop, nil
	}

	headers := raw.Form.File["pdf"]
	if len(headers) == 0 {
		return nil, noop, nil
	}

	header := headers[0]
	if header.Filename == "" || header.Size == 0 {
		return nil, noop, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, eris.Wrapf(err, "opening uploaded file %s", header.Filename)
	}

	attachment := &research.Attachment{
		Filename: header.Filename,
		Reader:   file,
	}
	return attachment, func() { _ = file.Close() }, nil
}

func researchIdentity(ident *auth.Identity) research.Identity {
	if ident == nil {
		return research.Identity{}
	}
	return research.Identity{UserID: ident.UserID, Admin: ident.IsAdmin}
}

func formValuesFromForm(form *articleForm) templates.FormValues {
	return templates.FormValues{
		Title:    form.Title,
		Content:  form.Content,
		Pair:     form.Pair,
		Position: form.Position,
		Mean:     form.Mean,
		Median:   form.Median,
		Mode:     form.Mode,
		Variance: form.Variance,
		Stdev:    form.Stdev,
	}
}

func formValuesFromDraft(draft research.Draft) templates.FormValues {
	return templates.FormValues{
		Title:    draft.Title,
		Content:  draft.Content,
		Pair:     draft.Pair,
		Position: string(draft.Position),
		Mean:     floatField(draft.Mean),
		Median:   floatField(draft.Median),
		Mode:     floatField(draft.Mode),
		Variance: floatField(draft.Variance),
		Stdev:    floatField(draft.Stdev),
	}
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func statViews(article *research.Article) []templates.StatView {
	stats := []struct {
		label string
		value *float64
	}{
		{"Mean", article.Mean},
		{"Median", article.Median},
		{"Mode", article.Mode},
		{"Variance", article.Variance},
		{"Standard Deviation", article.Stdev},
	}

	views := make([]templates.StatView, 0, len(stats))
	for _, stat := range stats {
		if stat.value == nil {
			continue
		}
		views = append(views, templates.StatView{
			Label: stat.label,
			Value: strconv.FormatFloat(*stat.value, 'f', -1, 64),
		})
	}
	return views
}
