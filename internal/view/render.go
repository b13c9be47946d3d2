package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/kalambet/folio/internal/profile"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var pageTemplates = template.Must(
	template.New("profile").
		Funcs(template.FuncMap{
			"action":    func(base, name, label string) actionData { return newAction(base, name, label, -1) },
			"rowAction": func(base, name, label string, index int) actionData { return newAction(base, name, label, index) },
		}).
		ParseFS(templatesFS, "templates/*.tmpl"),
)

// RenderOptions carries the static inputs of a render.
type RenderOptions struct {
	// Base is the path the page's forms post under, e.g. "/views/{id}".
	// Actions go to Base+"/actions/{name}" and retry to Base+"/retry".
	Base string
	// Refresh, when positive, makes a loading page re-poll after this long.
	Refresh time.Duration
	// Stylesheet is an optional stylesheet URL for RenderPage.
	Stylesheet string
}

type actionData struct {
	URL   string
	Name  string
	Label string
	Index int
}

func newAction(base, name, label string, index int) actionData {
	return actionData{
		URL:   base + "/actions/" + name,
		Name:  name,
		Label: label,
		Index: index,
	}
}

type pageData struct {
	Status         Status
	Profile        *profile.Profile
	Failed         bool
	ErrMessage     string
	Base           string
	Title          string
	RefreshSeconds int
	Stylesheet     string
}

func newPageData(s Snapshot, opts RenderOptions) pageData {
	d := pageData{
		Status:     s.Status,
		Base:       strings.TrimRight(opts.Base, "/"),
		Title:      "Profile",
		Stylesheet: opts.Stylesheet,
	}
	switch s.Status {
	case StatusLoaded:
		d.Profile = s.Profile
		if s.Profile != nil && s.Profile.Name != "" {
			d.Title = s.Profile.Name
		}
	case StatusFailed:
		d.Failed = true
		d.ErrMessage = "We could not load this profile."
		if s.Err != nil {
			d.ErrMessage = fmt.Sprintf("We could not load this profile (%v).", s.Err)
		}
	case StatusLoading:
		if opts.Refresh > 0 {
			d.RefreshSeconds = max(1, int(opts.Refresh.Round(time.Second)/time.Second))
		}
	}
	return d
}

// Render writes the five profile sections for s. Output depends only on s
// and opts.
func Render(w io.Writer, s Snapshot, opts RenderOptions) error {
	if err := pageTemplates.ExecuteTemplate(w, "sections", newPageData(s, opts)); err != nil {
		return fmt.Errorf("rendering sections: %w", err)
	}
	return nil
}

// RenderPage writes a complete HTML document for s.
func RenderPage(w io.Writer, s Snapshot, opts RenderOptions) error {
	if err := pageTemplates.ExecuteTemplate(w, "page", newPageData(s, opts)); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}
