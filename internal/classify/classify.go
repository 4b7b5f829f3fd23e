// Package classify categorises raw URLs into catalogue link categories
// via ordered rule tables. Adding support for a new third-party host is
// a table row, not new control flow.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// Rule is one row of a categorizer table. Empty matchers are
// wildcards; a host starting with '@' is a regexp over the hostname,
// otherwise it is an exact hostname.
type Rule struct {
	Host               string
	Path               string
	Query              string
	Slug               string
	DefaultDescription string
}

type compiledRule struct {
	host    string
	hostRE  *regexp.Regexp
	pathRE  *regexp.Regexp
	queryRE *regexp.Regexp
	slug    string
	desc    string
}

// Table is a compiled, ordered rule table. First match wins.
type Table struct {
	rules       []compiledRule
	unknownSlug string
	sniff       []phraseRule
}

type phraseRule struct {
	phrase string
	slug   string
}

func compile(rules []Rule, unknownSlug string, sniff []phraseRule) *Table {
	t := &Table{unknownSlug: unknownSlug, sniff: sniff}
	for _, r := range rules {
		cr := compiledRule{slug: r.Slug, desc: r.DefaultDescription}
		if strings.HasPrefix(r.Host, "@") {
			cr.hostRE = regexp.MustCompile("^(?:" + r.Host[1:] + ")")
		} else {
			cr.host = r.Host
		}
		if r.Path != "" {
			cr.pathRE = regexp.MustCompile("^(?:" + r.Path + ")")
		}
		if r.Query != "" {
			cr.queryRE = regexp.MustCompile("^(?:" + r.Query + ")")
		}
		t.rules = append(t.rules, cr)
	}
	return t
}

// Categorize resolves rawurl against base (when given), walks the rule
// table and returns the categorised link. An explicit category always
// overrides the table; an empty description falls back to the matched
// rule's default, then a phrase sniff over the description refines
// unknown categories, and finally the URL itself is used as the
// description of last resort.
func (t *Table) Categorize(rawurl, desc, category, base string) domain.URLRef {
	if base != "" {
		if b, err := url.Parse(base); err == nil {
			if u, err := url.Parse(rawurl); err == nil {
				rawurl = b.ResolveReference(u).String()
			}
		}
	}

	slug := t.unknownSlug
	if u, err := url.Parse(urlkit.QuoteUTF8(rawurl)); err == nil {
		for _, r := range t.rules {
			if r.host != "" && r.host != u.Hostname() {
				continue
			}
			if r.hostRE != nil && !r.hostRE.MatchString(u.Hostname()) {
				continue
			}
			if r.pathRE != nil && !r.pathRE.MatchString(u.EscapedPath()) {
				continue
			}
			if r.queryRE != nil && !r.queryRE.MatchString(u.RawQuery) {
				continue
			}
			slug = r.slug
			if desc == "" {
				desc = r.desc
			}
			break
		}
	}

	if slug == t.unknownSlug {
		lower := strings.ToLower(desc)
		for _, s := range t.sniff {
			if strings.Contains(lower, s.phrase) {
				slug = s.slug
				break
			}
		}
	}

	if category != "" {
		slug = category
	}
	if desc == "" {
		desc = rawurl
	}

	return domain.URLRef{CatSlug: slug, Description: desc, URL: rawurl}
}

// URL categorises a game-related link with the game rule table.
func URL(rawurl, desc, category, base string) domain.URLRef {
	return gameTable.Categorize(rawurl, desc, category, base)
}

// AuthorURL categorises a personality-related link with the author
// rule table.
func AuthorURL(rawurl, desc, category, base string) domain.URLRef {
	return authorTable.Categorize(rawurl, desc, category, base)
}
