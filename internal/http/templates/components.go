package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// writer accumulates HTML and carries the first write error.
type writer struct {
	w   io.Writer
	ctx context.Context
	err error
}

func (b *writer) raw(s string) {
	if b.err != nil {
		return
	}
	_, b.err = io.WriteString(b.w, s)
}

func (b *writer) esc(s string) {
	b.raw(templ.EscapeString(s))
}

func (b *writer) f(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}

func (b *writer) component(c templ.Component) {
	if b.err != nil {
		return
	}
	b.err = c.Render(b.ctx, b.w)
}

// layout wraps a page body in the shared chrome: head, navbar, footer.
func layout(title string, nav Nav, body func(b *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b := &writer{w: w, ctx: ctx}
		b.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		b.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>")
		b.esc(title)
		b.raw("</title></head><body>")
		navbar(b, nav)
		b.raw("<main class=\"container\">")
		body(b)
		b.raw("</main><footer><p>Research notes are provided for information only and are not investment advice.</p></footer></body></html>")
		return b.err
	})
}

func navbar(b *writer, nav Nav) {
	b.raw("<nav class=\"navbar\"><a class=\"brand\" href=\"/\">Gold Standard Research</a><div class=\"links\">")
	if nav.SignedIn {
		b.raw("<a href=\"/research\">Research</a>")
		if nav.IsAdmin {
			b.raw("<a href=\"/admin\">Admin</a>")
		}
		b.raw("<span class=\"email\">")
		b.esc(nav.Email)
		b.raw("</span><form method=\"post\" action=\"/auth/signout\" enctype=\"multipart/form-data\"><button type=\"submit\">Sign Out</button></form>")
	} else {
		b.raw("<a href=\"/auth\">Sign In</a>")
	}
	b.raw("</div></nav>")
}

// LandingPage renders the public landing view.
func LandingPage(data LandingPageData) templ.Component {
	return layout("Gold Standard Research", data.Nav, func(b *writer) {
		b.raw("<section class=\"hero\"><h1>Gold Standard Research</h1>")
		b.raw("<p>Statistical forex trade write-ups, published by our research desk.</p>")
		b.f("<p class=\"count\">%d research papers published.</p>", data.ArticleCount)
		if data.Nav.SignedIn {
			b.raw("<a class=\"cta\" href=\"/research\">Browse Research</a>")
		} else {
			b.raw("<a class=\"cta\" href=\"/auth\">Sign in to read</a>")
		}
		b.raw("</section>")
	})
}

// AuthPage renders the combined login / register view.
func AuthPage(data AuthPageData) templ.Component {
	return layout("Sign In • Gold Standard Research", data.Nav, func(b *writer) {
		b.raw("<section class=\"auth\"><h1>Welcome back</h1>")

		b.raw("<form method=\"post\" action=\"/auth/login\" enctype=\"multipart/form-data\" class=\"login\"><h2>Sign In</h2>")
		if data.LoginError != "" {
			b.raw("<p class=\"error\">")
			b.esc(data.LoginError)
			b.raw("</p>")
		}
		b.raw("<label>Email<input type=\"email\" name=\"email\" value=\"")
		b.esc(data.Email)
		b.raw("\" required></label><label>Password<input type=\"password\" name=\"password\" required></label>")
		b.raw("<button type=\"submit\">Sign In</button></form>")

		b.raw("<form method=\"post\" action=\"/auth/register\" enctype=\"multipart/form-data\" class=\"register\"><h2>Create Account</h2>")
		if data.RegisterError != "" {
			b.raw("<p class=\"error\">")
			b.esc(data.RegisterError)
			b.raw("</p>")
		}
		b.raw("<label>Email<input type=\"email\" name=\"email\" required></label>")
		b.raw("<label>Password<input type=\"password\" name=\"password\" minlength=\"8\" required></label>")
		b.raw("<button type=\"submit\">Register</button></form>")

		b.raw("</section>")
	})
}

// ListPage renders the research listing.
func ListPage(data ListPageData) templ.Component {
	return layout("Research • Gold Standard Research", data.Nav, func(b *writer) {
		if data.Notice != "" {
			b.raw("<p class=\"notice\">")
			b.esc(data.Notice)
			b.raw("</p>")
		}

		b.raw("<h1>Research</h1>")
		if len(data.Articles) == 0 {
			b.raw("<p class=\"empty\">No research papers published yet.</p>")
			return
		}

		b.raw("<div class=\"cards\">")
		for _, card := range data.Articles {
			b.raw("<article class=\"card\"><a href=\"/research/")
			b.esc(card.Slug)
			b.raw("\"><h2>")
			b.esc(card.Title)
			b.raw("</h2></a>")
			writeBadges(b, card.Pair, card.Position, card.Long, card.Date)
			b.raw("<p class=\"excerpt\">")
			b.esc(card.Excerpt)
			b.raw("</p></article>")
		}
		b.raw("</div>")
	})
}

// DetailPage renders a single article.
func DetailPage(data DetailPageData) templ.Component {
	return layout(data.Title+" • Gold Standard Research", data.Nav, func(b *writer) {
		b.raw("<article class=\"detail\">")
		writeBadges(b, data.Pair, data.Position, data.Long, data.Date)
		b.raw("<h1>")
		b.esc(data.Title)
		b.raw("</h1>")

		if len(data.Stats) > 0 {
			b.raw("<section class=\"stats\"><h2>Statistical Analysis</h2><dl>")
			for _, stat := range data.Stats {
				b.raw("<dt>")
				b.esc(stat.Label)
				b.raw("</dt><dd>")
				b.esc(stat.Value)
				b.raw("</dd>")
			}
			b.raw("</dl></section>")
		}

		b.raw("<div class=\"content\">")
		b.component(RawHTML(data.ContentHTML))
		b.raw("</div>")

		if data.PDFURL != "" {
			b.raw("<section class=\"attachment\"><h2>Research Paper</h2><iframe src=\"")
			b.esc(data.PDFURL)
			b.raw("\" title=\"Research Paper PDF\"></iframe></section>")
		}

		b.raw("</article>")
	})
}

// AdminPage renders the authoring dashboard.
func AdminPage(data AdminPageData) templ.Component {
	return layout("Admin • Gold Standard Research", data.Nav, func(b *writer) {
		if data.Notice != "" {
			b.raw("<p class=\"notice\">")
			b.esc(data.Notice)
			b.raw("</p>")
		}

		b.raw("<div class=\"admin-header\"><h1>Admin Dashboard</h1><a class=\"cta\" href=\"/admin/new\">New Research</a></div>")

		if len(data.Rows) == 0 {
			b.raw("<p class=\"empty\">No research papers yet.</p>")
			return
		}

		b.raw("<div class=\"rows\">")
		for _, row := range data.Rows {
			b.raw("<article class=\"row\"><h2>")
			b.esc(row.Title)
			b.raw("</h2><p class=\"meta\">")
			b.esc(row.Pair)
			b.raw(" • ")
			b.esc(row.Position)
			b.raw(" • ")
			b.esc(row.Date)
			b.raw("</p><p class=\"excerpt\">")
			b.esc(row.Excerpt)
			b.raw("</p><div class=\"actions\"><a href=\"/admin/edit/")
			b.esc(row.ID)
			b.raw("\">Edit</a><form method=\"post\" action=\"/admin/delete/")
			b.esc(row.ID)
			b.raw("\" enctype=\"multipart/form-data\" onsubmit=\"return confirm('Are you sure you want to delete this research paper?');\">")
			b.raw("<input type=\"hidden\" name=\"confirm\" value=\"yes\"><button type=\"submit\" class=\"danger\">Delete</button></form></div></article>")
		}
		b.raw("</div>")
	})
}

// AdminForm renders the create/edit dialog. The slug is derived server-side
// and never editable.
func AdminForm(data AdminFormData) templ.Component {
	title := "Create New Research Paper"
	action := "Create Research"
	if data.Editing {
		title = "Edit Research Paper"
		action = "Update Research"
	}

	return layout(title+" • Gold Standard Research", data.Nav, func(b *writer) {
		b.raw("<h1>")
		b.esc(title)
		b.raw("</h1>")

		if data.Error != "" {
			b.raw("<p class=\"error\">")
			b.esc(data.Error)
			b.raw("</p>")
		}

		b.raw("<form method=\"post\" action=\"/admin/save\" enctype=\"multipart/form-data\" class=\"editor\">")
		if data.Editing {
			b.raw("<input type=\"hidden\" name=\"id\" value=\"")
			b.esc(data.ArticleID)
			b.raw("\">")
		}

		textInput(b, "Title", "title", data.Values.Title, true)
		textInput(b, "Currency Pair", "pair", data.Values.Pair, true)

		b.raw("<label>Position<select name=\"position\">")
		writeOption(b, "long", "Long", data.Values.Position != "short")
		writeOption(b, "short", "Short", data.Values.Position == "short")
		b.raw("</select></label>")

		b.raw("<label>Content (Markdown supported)<textarea name=\"content\" rows=\"10\" required>")
		b.esc(data.Values.Content)
		b.raw("</textarea></label>")

		numberInput(b, "Mean", "mean", data.Values.Mean)
		numberInput(b, "Median", "median", data.Values.Median)
		numberInput(b, "Mode", "mode", data.Values.Mode)
		numberInput(b, "Variance", "variance", data.Values.Variance)
		numberInput(b, "Standard Deviation", "stdev", data.Values.Stdev)

		b.raw("<label>PDF File<input type=\"file\" name=\"pdf\" accept=\".pdf\"></label>")
		if data.Editing && data.HasPDF {
			b.raw("<p class=\"hint\">A PDF is already attached; uploading a new file replaces it.</p>")
		}

		b.raw("<button type=\"submit\">")
		b.esc(action)
		b.raw("</button></form>")
	})
}

// ErrorPage renders a friendly error view.
func ErrorPage(data ErrorPageData) templ.Component {
	return layout(data.StatusLabel+" • Gold Standard Research", data.Nav, func(b *writer) {
		b.raw("<section class=\"error-page\"><h1>")
		b.esc(data.StatusLabel)
		b.raw("</h1><p>")
		b.esc(data.Message)
		b.raw("</p><a href=\"/research\">Back to research</a></section>")
	})
}

func writeBadges(b *writer, pair, position string, long bool, date string) {
	b.raw("<p class=\"badges\"><span class=\"pair\">")
	b.esc(pair)
	if long {
		b.raw("</span><span class=\"position long\">")
	} else {
		b.raw("</span><span class=\"position short\">")
	}
	b.esc(position)
	b.raw("</span><span class=\"date\">")
	b.esc(date)
	b.raw("</span></p>")
}

func textInput(b *writer, label, name, value string, required bool) {
	b.raw("<label>")
	b.esc(label)
	b.raw("<input type=\"text\" name=\"")
	b.esc(name)
	b.raw("\" value=\"")
	b.esc(value)
	if required {
		b.raw("\" required></label>")
	} else {
		b.raw("\"></label>")
	}
}

func numberInput(b *writer, label, name, value string) {
	b.raw("<label>")
	b.esc(label)
	b.raw("<input type=\"text\" inputmode=\"decimal\" name=\"")
	b.esc(name)
	b.raw("\" value=\"")
	b.esc(value)
	b.raw("\"></label>")
}

func writeOption(b *writer, value, label string, selected bool) {
	b.raw("<option value=\"")
	b.esc(value)
	if selected {
		b.raw("\" selected>")
	} else {
		b.raw("\">")
	}
	b.esc(label)
	b.raw("</option>")
}
