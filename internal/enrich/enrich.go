// Package enrich applies declarative predicate→action rules to scraper
// records: inferring curated tags from platform names, cloning download
// links into interpreter links, defaulting the language. Rules run
// sequentially in table order, so later rules see what earlier rules
// added.
package enrich

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

// Predicate decides whether a rule fires for a record.
type Predicate interface {
	Match(rec *domain.MergedRecord) bool
}

// Action mutates a record when its rule fires.
type Action interface {
	Apply(rec *domain.MergedRecord)
}

// --- Predicates ---

type hasTag struct {
	cat string
	res []*regexp.Regexp
}

// HasTag matches records carrying a tag of the given category whose
// lowercased value matches any of the patterns (anchored at the start).
func HasTag(cat string, patterns ...string) Predicate {
	p := hasTag{cat: cat}
	for _, pat := range patterns {
		p.res = append(p.res, regexp.MustCompile("^(?:"+pat+")"))
	}
	return p
}

func (p hasTag) Match(rec *domain.MergedRecord) bool {
	for _, t := range rec.Tags {
		if t.CatSlug != p.cat {
			continue
		}
		val := strings.ToLower(t.Tag)
		for _, re := range p.res {
			if re.MatchString(val) {
				return true
			}
		}
	}
	return false
}

type isFromSite struct {
	cat  string
	site string
}

// IsFromSite matches records with a URL of the given category hosted
// on the given site.
func IsFromSite(cat, site string) Predicate {
	return isFromSite{cat: cat, site: site}
}

func (p isFromSite) Match(rec *domain.MergedRecord) bool {
	for _, u := range rec.URLs {
		if u.CatSlug != p.cat {
			continue
		}
		if parsed, err := url.Parse(u.URL); err == nil && parsed.Host == p.site {
			return true
		}
	}
	return false
}

type hasURLCategory struct {
	cat string
}

// HasURLCategory matches records with at least one URL of the given
// category.
func HasURLCategory(cat string) Predicate {
	return hasURLCategory{cat: cat}
}

func (p hasURLCategory) Match(rec *domain.MergedRecord) bool {
	for _, u := range rec.URLs {
		if u.CatSlug == p.cat {
			return true
		}
	}
	return false
}

type and struct{ subs []Predicate }

// And matches when every sub-predicate matches.
func And(subs ...Predicate) Predicate { return and{subs: subs} }

func (p and) Match(rec *domain.MergedRecord) bool {
	for _, s := range p.subs {
		if !s.Match(rec) {
			return false
		}
	}
	return true
}

type or struct{ subs []Predicate }

// Or matches when any sub-predicate matches.
func Or(subs ...Predicate) Predicate { return or{subs: subs} }

func (p or) Match(rec *domain.MergedRecord) bool {
	for _, s := range p.subs {
		if s.Match(rec) {
			return true
		}
	}
	return false
}

type not struct{ sub Predicate }

// Not inverts a predicate.
func Not(sub Predicate) Predicate { return not{sub: sub} }

func (p not) Match(rec *domain.MergedRecord) bool {
	return !p.sub.Match(rec)
}

// --- Actions ---

type addTag struct{ slugs []string }

// AddTag adds the curated tags that are not already present, by
// tag_slug identity only. Addition order follows the declared order,
// so the result is deterministic.
func AddTag(slugs ...string) Action { return addTag{slugs: slugs} }

func (a addTag) Apply(rec *domain.MergedRecord) {
	present := make(map[string]struct{}, len(rec.Tags))
	for _, t := range rec.Tags {
		if t.TagSlug != "" {
			present[t.TagSlug] = struct{}{}
		}
	}
	for _, slug := range a.slugs {
		if _, ok := present[slug]; ok {
			continue
		}
		rec.Tags = append(rec.Tags, domain.TagRef{TagSlug: slug})
	}
}

type addRawTag struct {
	cat string
	tag string
}

// AddRawTag appends a free-form tag unconditionally.
func AddRawTag(cat, tag string) Action { return addRawTag{cat: cat, tag: tag} }

func (a addRawTag) Apply(rec *domain.MergedRecord) {
	rec.Tags = append(rec.Tags, domain.TagRef{CatSlug: a.cat, Tag: a.tag})
}

type cloneURL struct {
	from string
	to   string
	desc string // fmt verb receiving the truncated source description
}

// CloneURL duplicates every URL of category from into a new entry
// under category to. The description format receives the source
// description truncated to 30 runes. Duplicate source URLs are cloned
// once.
func CloneURL(from, to, descFormat string) Action {
	return cloneURL{from: from, to: to, desc: descFormat}
}

func (a cloneURL) Apply(rec *domain.MergedRecord) {
	seen := make(map[string]string)
	var order []string
	for _, u := range rec.URLs {
		if u.CatSlug != a.from {
			continue
		}
		if _, ok := seen[u.URL]; !ok {
			order = append(order, u.URL)
		}
		seen[u.URL] = fmt.Sprintf(a.desc, truncateRunes(u.Description, 30))
	}
	for _, link := range order {
		rec.URLs = append(rec.URLs, domain.URLRef{
			CatSlug:     a.to,
			Description: seen[link],
			URL:         link,
		})
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// --- Engine ---

type rule struct {
	pred   Predicate
	action Action
}

// Enricher is an ordered rule table plus free-form enrichment
// functions. It is read-only after construction and safe for
// concurrent use.
type Enricher struct {
	rules []rule
	funcs []func(rec *domain.MergedRecord)
}

// New returns an empty enricher.
func New() *Enricher {
	return &Enricher{}
}

// AddRule appends a predicate→action rule.
func (e *Enricher) AddRule(pred Predicate, action Action) {
	e.rules = append(e.rules, rule{pred: pred, action: action})
}

// AddFunc appends a free-form enrichment function, run after all rules.
func (e *Enricher) AddFunc(f func(rec *domain.MergedRecord)) {
	e.funcs = append(e.funcs, f)
}

// Enrich runs the rule table, then the functions, against rec.
func (e *Enricher) Enrich(rec *domain.MergedRecord) {
	for _, r := range e.rules {
		if r.pred.Match(rec) {
			r.action.Apply(rec)
		}
	}
	for _, f := range e.funcs {
		f(rec)
	}
}

// EnrichPartial runs the rule table against a single scraper record.
// Enriching before the merge means the merge's identity sets dedup the
// rules' output, so two sources spelling the same raw tag differently
// still collapse to one tag once LowerCaseTags has normalised them.
func (e *Enricher) EnrichPartial(rec *domain.PartialRecord) {
	view := domain.MergedRecord{
		Title:       rec.Title,
		Desc:        rec.Desc,
		ReleaseDate: rec.ReleaseDate,
		Authors:     rec.Authors,
		Tags:        rec.Tags,
		URLs:        rec.URLs,
		Err:         rec.Err,
	}
	e.Enrich(&view)
	rec.Authors = view.Authors
	rec.Tags = view.Tags
	rec.URLs = view.URLs
}
