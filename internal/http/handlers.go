package http

import (
	"context"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"traderesearch/app/internal/auth"
	"traderesearch/app/internal/db"
	"traderesearch/app/internal/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
	accessDeniedNotice   = "Access denied. You do not have admin privileges."

	listDateFormat   = "Jan 02, 2006"
	detailDateFormat = "January 02, 2006"
	excerptRunes     = 200
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	SetCookie   string `header:"Set-Cookie"`
	Body        []byte
}

type noticeInput struct {
	Notice string `query:"notice"`
}

type slugInput struct {
	Slug string `path:"slug"`
}

type credentialsForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type credentialsInput struct {
	RawBody huma.MultipartFormFiles[credentialsForm]
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Storage  string `json:"storage"`
	}
}

func (s *Server) registerLandingRoute() {
	huma.Get(s.api, "/", s.landingHandler, htmlOperation("Landing page", stdhttp.StatusInternalServerError))
}

func (s *Server) registerAuthRoutes() {
	huma.Get(s.api, "/auth", s.authPageHandler, htmlOperation(
		"Login and registration",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/auth/login", s.loginHandler, htmlOperation(
		"Sign in",
		stdhttp.StatusFound,
		stdhttp.StatusUnauthorized,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/auth/register", s.registerHandler, htmlOperation(
		"Create account",
		stdhttp.StatusFound,
		stdhttp.StatusBadRequest,
		stdhttp.StatusInternalServerError,
	))
	huma.Post(s.api, "/auth/signout", s.signOutHandler, htmlOperation(
		"Sign out",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerResearchRoutes() {
	huma.Get(s.api, "/research", s.researchListHandler, htmlOperation(
		"Research listing",
		stdhttp.StatusFound,
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/research/{slug}", s.researchDetailHandler, htmlOperation(
		"Research detail",
		stdhttp.StatusFound,
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) landingHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	data := templates.LandingPageData{
		Nav:          s.navFromContext(ctx),
		ArticleCount: len(s.research.List(ctx)),
	}

	body, err := renderComponent(ctx, templates.LandingPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering landing page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the landing page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) authPageHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if identityFromContext(ctx) != nil {
		return redirectResponse("/research"), nil
	}

	return s.renderAuthPage(ctx, stdhttp.StatusOK, templates.AuthPageData{Nav: s.navFromContext(ctx)})
}

func (s *Server) loginHandler(ctx context.Context, input *credentialsInput) (*htmlResponse, error) {
	form := input.RawBody.Data()

	token, err := s.auth.Login(ctx, form.Email, form.Password)
	if err != nil {
		if eris.Is(err, auth.ErrInvalidCredentials) {
			return s.renderAuthPage(ctx, stdhttp.StatusUnauthorized, templates.AuthPageData{
				Nav:        s.navFromContext(ctx),
				Email:      form.Email,
				LoginError: "Invalid email or password.",
			})
		}

		s.recordError(ctx, err, "logging in", logrus.Fields{"email": form.Email})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	resp := redirectResponse("/research")
	resp.SetCookie = sessionCookie(token).String()
	return resp, nil
}

func (s *Server) registerHandler(ctx context.Context, input *credentialsInput) (*htmlResponse, error) {
	form := input.RawBody.Data()

	if _, err := s.auth.Register(ctx, form.Email, form.Password, false); err != nil {
		message := "We couldn't create your account."
		status := stdhttp.StatusInternalServerError

		if eris.Is(err, auth.ErrEmailTaken) {
			message = "That email is already registered."
			status = stdhttp.StatusBadRequest
		} else {
			// Validation failures from the auth service carry their own text.
			message = rootMessage(err)
			status = stdhttp.StatusBadRequest
		}

		return s.renderAuthPage(ctx, status, templates.AuthPageData{
			Nav:           s.navFromContext(ctx),
			Email:         form.Email,
			RegisterError: message,
		})
	}

	token, err := s.auth.Login(ctx, form.Email, form.Password)
	if err != nil {
		s.recordError(ctx, err, "logging in after registration", logrus.Fields{"email": form.Email})
		return redirectResponse("/auth"), nil
	}

	resp := redirectResponse("/research")
	resp.SetCookie = sessionCookie(token).String()
	return resp, nil
}

func (s *Server) signOutHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if token := sessionTokenFromContext(ctx); token != "" {
		if err := s.auth.SignOut(ctx, token); err != nil {
			s.recordError(ctx, err, "signing out", nil)
		}
	}

	resp := redirectResponse("/")
	resp.SetCookie = expiredSessionCookie().String()
	return resp, nil
}

func (s *Server) researchListHandler(ctx context.Context, input *noticeInput) (*htmlResponse, error) {
	if resp := s.requireIdentity(ctx); resp != nil {
		return resp, nil
	}

	articles := s.research.List(ctx)

	data := templates.ListPageData{Nav: s.navFromContext(ctx)}
	if input.Notice == "access-denied" {
		data.Notice = accessDeniedNotice
	}

	data.Articles = make([]templates.ArticleCardView, 0, len(articles))
	for _, article := range articles {
		data.Articles = append(data.Articles, templates.ArticleCardView{
			Title:    article.Title,
			Slug:     article.Slug,
			Pair:     article.Pair,
			Position: strings.ToUpper(string(article.Position)),
			Long:     article.Position == "long",
			Date:     article.CreatedAt.Format(listDateFormat),
			Excerpt:  excerpt(article.Content),
		})
	}

	body, err := renderComponent(ctx, templates.ListPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering research list", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) researchDetailHandler(ctx context.Context, input *slugInput) (*htmlResponse, error) {
	if resp := s.requireIdentity(ctx); resp != nil {
		return resp, nil
	}

	slug := strings.TrimSpace(input.Slug)
	article := s.research.GetBySlug(ctx, slug)
	if article == nil {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "Research paper not found.")
	}

	contentHTML, err := templates.RenderMarkdown(article.Content)
	if err != nil {
		s.recordError(ctx, err, "rendering article markdown", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.DetailPageData{
		Nav:         s.navFromContext(ctx),
		Title:       article.Title,
		Pair:        article.Pair,
		Position:    strings.ToUpper(string(article.Position)),
		Long:        article.Position == "long",
		Date:        article.CreatedAt.Format(detailDateFormat),
		ContentHTML: contentHTML,
	}

	if article.HasStats() {
		data.Stats = statViews(article)
	}

	if article.PDFKey != nil {
		// A fresh signed URL on every render; nothing is cached.
		signed, resolveErr := s.research.ResolveAttachment(*article.PDFKey)
		if resolveErr != nil {
			s.recordError(ctx, resolveErr, "resolving attachment url", logrus.Fields{"slug": slug})
		} else {
			data.PDFURL = signed
		}
	}

	body, err := renderComponent(ctx, templates.DetailPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering research detail", logrus.Fields{"slug": slug})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Storage = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if s.blobs == nil {
		resp.Body.Status = "degraded"
		resp.Body.Storage = "unconfigured"
		if resp.Status == 0 {
			resp.Status = stdhttp.StatusServiceUnavailable
		}
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

// requireIdentity implements the outer visibility gate: any protected route
// redirects anonymous visitors to the login entry point.
func (s *Server) requireIdentity(ctx context.Context) *htmlResponse {
	if identityFromContext(ctx) == nil {
		return redirectResponse("/auth")
	}
	return nil
}

// requireAdmin layers the admin claim on top of the identity gate. This is
// presentation-level only; the research service re-checks the claim on every
// mutation.
func (s *Server) requireAdmin(ctx context.Context) *htmlResponse {
	ident := identityFromContext(ctx)
	if ident == nil {
		return redirectResponse("/auth")
	}
	if !ident.IsAdmin {
		return redirectResponse("/research?notice=access-denied")
	}
	return nil
}

func (s *Server) navFromContext(ctx context.Context) templates.Nav {
	ident := identityFromContext(ctx)
	if ident == nil {
		return templates.Nav{}
	}
	return templates.Nav{SignedIn: true, IsAdmin: ident.IsAdmin, Email: ident.Email}
}

func (s *Server) renderAuthPage(ctx context.Context, status int, data templates.AuthPageData) (*htmlResponse, error) {
	body, err := renderComponent(ctx, templates.AuthPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering auth page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	return newHTMLResponse(status, body), nil
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	data := templates.ErrorPageData{
		Nav:         s.navFromContext(ctx),
		StatusLabel: strconv.Itoa(status) + " " + stdhttp.StatusText(status),
		Message:     message,
	}

	body, err := renderComponent(ctx, templates.ErrorPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", nil)
		return &htmlResponse{
			Status:      status,
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(message),
		}, nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	} else if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func redirectResponse(location string) *htmlResponse {
	resp := newHTMLResponse(stdhttp.StatusFound, nil)
	resp.Location = location
	return resp
}

func sessionCookie(token string) *stdhttp.Cookie {
	return &stdhttp.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
	}
}

func expiredSessionCookie() *stdhttp.Cookie {
	return &stdhttp.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			if _, exists := op.Responses[code]; !exists {
				op.Responses[code] = &huma.Response{
					Description: stdhttp.StatusText(status),
					Content: map[string]*huma.MediaType{
						"text/html": {},
					},
				}
			}
		}
	}
}

func excerpt(content string) string {
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= excerptRunes {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}

func rootMessage(err error) string {
	if err == nil {
		return ""
	}
	if root := eris.Unpack(err).ErrRoot.Msg; root != "" {
		return root
	}
	return err.Error()
}
