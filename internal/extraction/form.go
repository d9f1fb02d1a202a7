package extraction

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"github.com/williampepple1/salvage-yard-monitor/internal/fetch"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for an option label to count as a match
const fuzzyThreshold = 0.85

// Option is one <option> of a select field
type Option struct {
	Value string
	Text  string
}

// Field is a named form control
type Field struct {
	Name    string
	Type    string
	Value   string
	Select  bool
	Options []Option
}

// Form is an introspected HTML form
type Form struct {
	Action string
	Method string
	Fields []Field
}

// FormTarget is what a form should be filled in with
type FormTarget struct {
	Make  string
	Model string
	Year  string
	// Years is consulted for year selects when Year is empty; the first listed option wins
	Years []string
	// Query is used for free-text search inputs; defaults to "Make Model"
	Query string
	// Presets are sent as-is unless a matching select overrides them
	Presets url.Values
}

// FirstForm reads the first <form> in doc. Its action is resolved against pageURL.
func FirstForm(doc *goquery.Document, pageURL string) (*Form, bool) {
	sel := doc.Find("form").First()
	if sel.Length() == 0 {
		return nil, false
	}

	method := strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		method = http.MethodGet
	}

	form := &Form{
		Action: resolve(pageURL, sel.AttrOr("action", "")),
		Method: method,
	}

	sel.Find("select, input").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if goquery.NodeName(s) == "select" {
			f := Field{Name: name, Select: true}
			s.Find("option").Each(func(_ int, o *goquery.Selection) {
				text := strings.TrimSpace(o.Text())
				f.Options = append(f.Options, Option{Value: o.AttrOr("value", text), Text: text})
			})
			form.Fields = append(form.Fields, f)
			return
		}
		form.Fields = append(form.Fields, Field{
			Name:  name,
			Type:  strings.ToLower(s.AttrOr("type", "text")),
			Value: s.AttrOr("value", ""),
		})
	})
	return form, true
}

func resolve(pageURL, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

// Fill populates fields whose names mention make, model or year, and free-text search inputs
func (f *Form) Fill(t FormTarget) url.Values {
	values := url.Values{}
	for k, v := range t.Presets {
		values[k] = append([]string(nil), v...)
	}
	query := t.Query
	if query == "" {
		query = strings.TrimSpace(t.Make + " " + t.Model)
	}

	selected := map[string]bool{}
	for _, field := range f.Fields {
		if !field.Select {
			continue
		}
		name := strings.ToLower(field.Name)
		var value string
		var ok bool
		switch {
		case strings.Contains(name, "make"):
			value, ok = pickOption(field.Options, t.Make)
		case strings.Contains(name, "model"):
			value, ok = pickOption(field.Options, t.Model)
		case strings.Contains(name, "year") && t.Year != "":
			value, ok = pickYear(field.Options, t.Year)
		case strings.Contains(name, "year") && len(t.Years) > 0:
			value, ok = pickAnyYear(field.Options, t.Years)
		}
		if ok {
			values.Set(field.Name, value)
			selected[field.Name] = true
		}
	}

	for _, field := range f.Fields {
		if field.Select || selected[field.Name] || values.Has(field.Name) {
			continue
		}
		switch field.Type {
		case "submit", "button", "image", "reset", "checkbox", "radio":
			continue
		case "hidden":
			values.Set(field.Name, field.Value)
			continue
		}
		name := strings.ToLower(field.Name)
		switch {
		case strings.Contains(name, "make"):
			values.Set(field.Name, t.Make)
		case strings.Contains(name, "model"):
			values.Set(field.Name, t.Model)
		case strings.Contains(name, "year") && t.Year != "":
			values.Set(field.Name, t.Year)
		case strings.Contains(name, "search") || strings.Contains(name, "query") || name == "q":
			values.Set(field.Name, query)
		}
	}
	return values
}

// Submit sends values as the form's method declares
func (f *Form) Submit(ctx context.Context, fetcher fetch.Fetcher, values url.Values) *fetch.Response {
	if f.Method == http.MethodPost {
		return fetcher.PostForm(ctx, f.Action, values)
	}
	return fetcher.Get(ctx, f.Action, values)
}

func pickOption(options []Option, term string) (string, bool) {
	if term == "" {
		return "", false
	}
	lower := strings.ToLower(term)
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.Text), lower) {
			return o.Value, true
		}
	}

	best, bestScore := "", 0.0
	for _, o := range options {
		if o.Text == "" {
			continue
		}
		score := matchr.JaroWinkler(strings.ToLower(o.Text), lower, false)
		if score > bestScore {
			best, bestScore = o.Value, score
		}
	}
	return best, bestScore >= fuzzyThreshold
}

func pickYear(options []Option, year string) (string, bool) {
	for _, o := range options {
		if o.Value == year || o.Text == year {
			return o.Value, true
		}
	}
	return "", false
}

func pickAnyYear(options []Option, years []string) (string, bool) {
	for _, o := range options {
		for _, y := range years {
			if o.Value == y {
				return o.Value, true
			}
		}
	}
	return "", false
}
