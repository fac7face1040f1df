package templates

// Nav carries the identity-dependent navigation state shared by every page.
type Nav struct {
	SignedIn bool
	IsAdmin  bool
	Email    string
}

// LandingPageData contains dynamic values rendered on the landing page.
type LandingPageData struct {
	Nav          Nav
	ArticleCount int
}

// AuthPageData bundles the login and registration forms.
type AuthPageData struct {
	Nav           Nav
	Email         string
	LoginError    string
	RegisterError string
}

// ArticleCardView is a single entry on the research list.
type ArticleCardView struct {
	Title    string
	Slug     string
	Pair     string
	Position string
	Long     bool
	Date     string
	Excerpt  string
}

// ListPageData bundles template data for the research list page.
type ListPageData struct {
	Nav      Nav
	Notice   string
	Articles []ArticleCardView
}

// StatView is one labelled statistic on the detail page.
type StatView struct {
	Label string
	Value string
}

// DetailPageData contains the dynamic values for an article detail page.
type DetailPageData struct {
	Nav         Nav
	Title       string
	Pair        string
	Position    string
	Long        bool
	Date        string
	ContentHTML string
	Stats       []StatView
	PDFURL      string
}

// AdminRowView is a single article row on the dashboard.
type AdminRowView struct {
	ID       string
	Title    string
	Pair     string
	Position string
	Date     string
	Excerpt  string
}

// AdminPageData bundles the authoring dashboard.
type AdminPageData struct {
	Nav    Nav
	Notice string
	Rows   []AdminRowView
}

// FormValues carries the raw form fields for re-rendering after a failure.
type FormValues struct {
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

// AdminFormData bundles the create/edit form. The slug is never part of it.
type AdminFormData struct {
	Nav       Nav
	Editing   bool
	ArticleID string
	Error     string
	Values    FormValues
	HasPDF    bool
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Nav         Nav
	StatusLabel string
	Message     string
}
