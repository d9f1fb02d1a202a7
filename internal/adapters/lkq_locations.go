package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/worker"
)

// lkqPickerURL is a yard page carrying the #locationBox picker with every yard in it
const lkqPickerURL = lkqBase + "/parts/monrovia-1281/"

// ErrNoLocations is returned when the yard picker yields nothing
var ErrNoLocations = errors.New("no LKQ locations found")

var (
	lkqPatternRe  = regexp.MustCompile(`\b([a-z]+(?:-[a-z]+)*)-(\d{4})\b`)
	lkqSlugJunkRe = regexp.MustCompile(`[^a-z0-9-]+`)
	lkqDashesRe   = regexp.MustCompile(`-{2,}`)
)

// DiscoverLocations reads the yard picker on an LKQ parts page and returns one parts URL
// per yard, sorted. Each yard id is matched to a "<city>-<id>" slug found on the page, or
// gets a slug built from its display name.
func (a *LKQ) DiscoverLocations(ctx context.Context) ([]string, error) {
	html, ok := a.get(ctx, lkqPickerURL)
	if !ok {
		return nil, fmt.Errorf("fetch %s: page unavailable", lkqPickerURL)
	}
	doc := a.parse(ctx, html)
	if doc == nil {
		return nil, fmt.Errorf("parse %s", lkqPickerURL)
	}

	yards := lkqPickerOptions(doc)
	if len(yards) == 0 {
		return nil, ErrNoLocations
	}
	slugs := lkqSlugs(doc, html)

	seen := make(map[string]bool)
	var urls []string
	for _, y := range yards {
		slug, found := slugs[y.id]
		if !found {
			slug = citySlug(y.name) + "-" + y.id
			a.logger.DebugContext(ctx, "guessed yard slug", "yard", y.name, "slug", slug)
		}
		u := fmt.Sprintf("%s/parts/%s/", lkqBase, slug)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	a.logger.InfoContext(ctx, "discovered LKQ locations", "count", len(urls), "matched", len(slugs))
	return urls, nil
}

// ValidateLocations keeps the location URLs that answer a GET
func (a *LKQ) ValidateLocations(ctx context.Context, urls []string) []string {
	outcomes := worker.Run(ctx, a.workers, urls, func(ctx context.Context, u string) ([]string, error) {
		if _, ok := a.get(ctx, u); !ok {
			return nil, nil
		}
		return []string{u}, nil
	})
	valid := worker.Collect(outcomes)
	a.logger.InfoContext(ctx, "validated LKQ locations", "valid", len(valid), "total", len(urls))
	return valid
}

type lkqYardOption struct {
	id   string
	name string
}

func lkqPickerOptions(doc *goquery.Document) []lkqYardOption {
	var yards []lkqYardOption
	doc.Find("select#locationBox option").Each(func(_ int, opt *goquery.Selection) {
		id := strings.TrimSpace(opt.AttrOr("value", ""))
		name := strings.TrimSpace(opt.Text())
		if id == "" || id == "0" || name == "" || strings.EqualFold(name, "Please Select A Location") {
			return
		}
		yards = append(yards, lkqYardOption{id: id, name: name})
	})
	return yards
}

// lkqSlugs maps yard ids to slugs, preferring yard links over bare mentions
func lkqSlugs(doc *goquery.Document, html string) map[string]string {
	slugs := make(map[string]string)
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		m := lkqSlugRe.FindStringSubmatch(link.AttrOr("href", ""))
		if m == nil {
			return
		}
		if p := lkqPatternRe.FindStringSubmatch(strings.ToLower(m[1])); p != nil && p[0] == strings.ToLower(m[1]) {
			if _, ok := slugs[p[2]]; !ok {
				slugs[p[2]] = p[0]
			}
		}
	})
	for _, p := range lkqPatternRe.FindAllStringSubmatch(strings.ToLower(html), -1) {
		if _, ok := slugs[p[2]]; !ok {
			slugs[p[2]] = p[0]
		}
	}
	return slugs
}

// citySlug turns "St. Louis South" into "st-louis-south"
func citySlug(name string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	slug = lkqSlugJunkRe.ReplaceAllString(slug, "")
	slug = lkqDashesRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
