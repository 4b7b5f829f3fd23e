package ifwiki

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

// errUnbalanced is returned when template braces never close.
var errUnbalanced = errors.New("unbalanced template braces")

var (
	linkRE          = regexp.MustCompile(`\[\[(.*?)\]\]`)
	linkInternalsRE = regexp.MustCompile(`^(?:([^:\]|]*)::?)?([^:\]|]+)(?:\|([^\]|]+))??(?:\|([^\]|]+))?$`)

	headingRE = regexp.MustCompile(`^(={1,6})\s*(.*?)\s*=*$`)
	listRE    = regexp.MustCompile(`^([*#:;]+)\s*(.*)$`)
	tagRE     = regexp.MustCompile(`(?i)</?([a-z][a-z0-9]*)\s*[^>]*>`)

	// One pass over internal links, bracketed external links and bare
	// URLs. A single scan keeps already-rendered markdown from being
	// picked up again.
	inlineLinkRE = regexp.MustCompile(
		`\[\[(.*?)\]\]` +
			`|\[(https?://[^\s\]]+)(?:\s+([^\]]*))?\]` +
			`|(https?://[^\s\[\]<>]+)`)

	placeholderRE = regexp.MustCompile(`\{_([^}]+)\}`)
)

// roles maps a wiki link prefix to the catalogue credit role. Order
// matters: the first match wins, same as the wiki's own conventions.
var roles = []struct {
	prefix string
	slug   string
}{
	{"автор", "author"},
	{"Автор", "author"},
	{"ifwiki-en", "author"},
	{"Переводчик", "translator"},
	{"Персонаж", "character"},
	{"Тестировщик", "tester"},
	{"Участник", "member"},
	{"Иллюстратор", "artist"},
	{"Программист", "programmer"},
	{"Композитор", "composer"},
}

// competitions maps a competition template to the tag it produces,
// with {_N} standing for the template's Nth positional parameter.
var competitions = map[string]string{
	"Конкурс":     "{_1}",
	"ЛОК":         "ЛОК-{_1}",
	"ЗОК":         "ЗОК-{_1}",
	"КРИЛ":        "КРИЛ-{_1}",
	"goldhamster": "Золотой Хомяк {_1}",
	"qspcompo":    "QSP-Compo {_1}",
	"Проект 31":   "Проект 31",
	"Ludum Dare":  "Ludum Dare {_1}",
}

// ignoreTemplates render to nothing without a warning.
var ignoreTemplates = []string{"ЗаглушкаТекста", "ЗаглушкаСсылок"}

// gameInfoIgnore are game info keys that carry layout, not data.
var gameInfoIgnore = []string{"ширинаобложки", "высотаобложки"}

// parseContext accumulates everything a page parse extracts besides
// the markdown text itself.
type parseContext struct {
	title       string
	pageURL     string
	releaseDate *domain.Date
	authors     []domain.AuthorRef
	tags        []domain.TagRef
	urls        []domain.URLRef

	// classifyURL is the rule table links go through: the game table
	// for game pages, the author table for personality pages.
	classifyURL func(rawurl, desc, category, base string) domain.URLRef
}

func newParseContext(title, url string, classifyURL func(rawurl, desc, category, base string) domain.URLRef) *parseContext {
	c := &parseContext{title: title, pageURL: url, classifyURL: classifyURL}
	c.urls = append(c.urls, classifyURL(url, "", "", ""))
	return c
}

func (c *parseContext) addURL(rawurl, desc, category string) {
	c.urls = append(c.urls, c.classifyURL(rawurl, desc, category, c.pageURL))
}

// parse expands templates and renders the wikitext to markdown.
func (c *parseContext) parse(text string) (string, error) {
	expanded, err := c.expandTemplates(text)
	if err != nil {
		return "", err
	}
	return c.render(expanded), nil
}

// expandTemplates replaces every {{...}} with its dispatch result.
// Inner templates expand before the outer one is parsed, so
// {{PAGENAME}} works inside a game info value.
func (c *parseContext) expandTemplates(text string) (string, error) {
	var b strings.Builder
	for {
		i := strings.Index(text, "{{")
		if i < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		b.WriteString(text[:i])

		rest := text[i+2:]
		depth := 1
		j := 0
		for j < len(rest) && depth > 0 {
			switch {
			case strings.HasPrefix(rest[j:], "{{"):
				depth++
				j += 2
			case strings.HasPrefix(rest[j:], "}}"):
				depth--
				if depth > 0 {
					j += 2
				}
			default:
				j++
			}
		}
		if depth != 0 {
			return "", errUnbalanced
		}

		body, err := c.expandTemplates(rest[:j])
		if err != nil {
			return "", err
		}
		b.WriteString(c.dispatchTemplate(body))
		text = rest[j+2:]
	}
}

// templateParams holds a template's parameters in source order.
type templateParams struct {
	keys   []string
	values map[string]string
}

func (p *templateParams) add(k, v string) {
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = v
}

func (p *templateParams) get(k string) string { return p.values[k] }

// splitTop splits on '|' outside [[...]] so link pipes inside a
// parameter value survive.
func splitTop(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(s[i:], "]]"):
			if depth > 0 {
				depth--
			}
			i++
		case s[i] == '|' && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func parseParams(parts []string) *templateParams {
	p := &templateParams{values: make(map[string]string)}
	count := 0
	for _, part := range parts {
		eq := strings.Index(part, "=")
		// A '/' before the '=' means the '=' belongs to a URL value,
		// not a parameter name.
		if eq >= 0 && !strings.Contains(part[:eq], "/") {
			p.add(strings.TrimSpace(part[:eq]), strings.TrimSpace(part[eq+1:]))
			continue
		}
		count++
		p.add(fmt.Sprintf("%d", count), strings.TrimSpace(part))
	}
	return p
}

func (c *parseContext) dispatchTemplate(body string) string {
	parts := splitTop(body)
	name := strings.TrimSpace(parts[0])
	params := parseParams(parts[1:])

	if name == "PAGENAME" {
		return c.title
	}
	if name == "game info" {
		c.processGameInfo(params)
		return ""
	}
	if format, ok := competitions[name]; ok {
		c.tags = append(c.tags, domain.TagRef{
			CatSlug: "competition",
			Tag: placeholderRE.ReplaceAllStringFunc(format, func(m string) string {
				return params.get(m[2 : len(m)-1])
			}),
		})
		return ""
	}

	switch name {
	case "Избранная игра":
		c.tags = append(c.tags, domain.TagRef{TagSlug: "ifwiki_featured"})
		return ""
	case "РИЛФайл":
		return "[" + params.get("1") + " Ссылка на РилАрхив]"
	case "Ссылка":
		if arch := params.get("архив"); arch != "" {
			c.addURL(arch, "", "")
		}
		desc := params.get("1")
		if desc == "" {
			desc = "ссылка"
		}
		return "[" + params.get("на") + " " + desc + "]"
	case "Тема":
		c.tags = append(c.tags, domain.TagRef{CatSlug: "tag", Tag: params.get("1")})
		return ""
	case "ns:6":
		return "Media"
	}

	for _, ignore := range ignoreTemplates {
		if name == ignore {
			return ""
		}
	}
	logger.Warn("unknown template on %s: %s", c.pageURL, name)
	return ""
}

func (c *parseContext) processGameInfo(params *templateParams) {
	for _, k := range params.keys {
		v := params.get(k)
		switch k {
		case "автор":
			for _, m := range linkRE.FindAllStringSubmatch(v, -1) {
				c.processLink(m[1], "author")
			}
		case "название":
			c.title = v
		case "вышла":
			if d, err := domain.ParseDate("02.01.2006", v); err == nil {
				c.releaseDate = &d
			}
		case "платформа":
			c.tags = append(c.tags, domain.TagRef{CatSlug: "platform", Tag: v})
		case "язык":
			c.tags = append(c.tags, domain.TagRef{CatSlug: "language", Tag: v})
		case "темы":
			for _, t := range strings.Split(v, ",") {
				c.tags = append(c.tags, domain.TagRef{CatSlug: "tag", Tag: strings.TrimSpace(t)})
			}
		case "обложка":
			c.addURL("/files/"+wikiQuote(v), "Обложка", "poster")
		case "IFID":
			c.tags = append(c.tags, domain.TagRef{CatSlug: "ifid", Tag: v})
		case "1", "2":
			if strings.TrimSpace(v) != "" {
				logger.Warn("unknown game info value on %s: %s", c.pageURL, v)
			}
		default:
			if !containsString(gameInfoIgnore, k) {
				logger.Warn("unknown game info key on %s: %s=%s", c.pageURL, k, v)
			}
		}
	}
}

// processLink handles the inside of one [[...]] link: role-prefixed
// links become credits or media URLs, plain ones just text. Returns
// the text the link renders as.
func (c *parseContext) processLink(text, defaultRole string) string {
	m := linkInternalsRE.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	role, name, typ, display := m[1], m[2], m[3], m[4]

	if role == "Категория" {
		return ""
	}

	matched := false
	for _, r := range roles {
		if r.prefix == role {
			c.authors = append(c.authors, domain.AuthorRef{RoleSlug: r.slug, Name: name})
			matched = true
			break
		}
	}
	if !matched {
		switch {
		case role == "Медиа" || role == "Media":
			category := "download_direct"
			if typ == "thumb" {
				category = "poster"
			}
			c.addURL("/files/"+wikiQuote(name), display, category)
		case role == "Изображение":
			c.addURL("/files/"+wikiQuote(name), display, "screenshot")
		case role == "Тема":
			c.tags = append(c.tags, domain.TagRef{CatSlug: "tag", Tag: name})
		case role == "":
			c.authors = append(c.authors, domain.AuthorRef{RoleSlug: defaultRole, Name: name})
		default:
			logger.Warn("unknown link role on %s: %s", c.pageURL, role)
			c.authors = append(c.authors, domain.AuthorRef{RoleSlug: "member", Name: name})
		}
	}

	if display != "" {
		return display
	}
	if role != "" {
		return role + ":" + name
	}
	return name
}

// render turns the template-free wikitext into markdown, line by line.
func (c *parseContext) render(text string) string {
	var out strings.Builder
	var para []string
	var counters []int

	flush := func() {
		if len(para) == 0 {
			return
		}
		out.WriteString(c.inline(strings.Join(para, " ")))
		out.WriteString("\n\n")
		para = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
			counters = nil
		case strings.HasPrefix(trimmed, "----"):
			flush()
			counters = nil
			out.WriteString("\n===\n")
		case strings.HasPrefix(trimmed, "="):
			flush()
			counters = nil
			if m := headingRE.FindStringSubmatch(trimmed); m != nil {
				out.WriteString(strings.Repeat("#", len(m[1])) + " " + c.inline(m[2]) + "\n")
			} else {
				para = append(para, trimmed)
			}
		case listRE.MatchString(trimmed):
			flush()
			m := listRE.FindStringSubmatch(trimmed)
			marker, item := m[1], m[2]
			level := len(marker) - 1
			indent := strings.Repeat("  ", level)
			if marker[len(marker)-1] == '#' {
				for len(counters) <= level {
					counters = append(counters, 0)
				}
				counters = counters[:level+1]
				counters[level]++
				fmt.Fprintf(&out, "%s%d. %s\n", indent, counters[level], c.inline(item))
			} else {
				if len(counters) > level {
					counters = counters[:level]
				}
				out.WriteString(indent + "* " + c.inline(item) + "\n")
			}
		default:
			counters = nil
			para = append(para, trimmed)
		}
	}
	flush()
	return out.String()
}

// inline renders links, HTML tags and apostrophe styling inside one
// line of text.
func (c *parseContext) inline(s string) string {
	s = c.stripTags(s)

	var b strings.Builder
	last := 0
	for _, m := range inlineLinkRE.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		last = m[1]

		group := func(n int) string {
			if m[2*n] < 0 {
				return ""
			}
			return s[m[2*n]:m[2*n+1]]
		}
		switch {
		case m[2] >= 0: // internal link
			if text := c.processLink(group(1), "member"); text != "" {
				b.WriteString("**" + text + "**")
			}
		case m[4] >= 0: // bracketed external link
			url, desc := group(2), strings.TrimSpace(group(3))
			c.addURL(url, desc, "")
			if desc != "" {
				b.WriteString("[" + desc + "](" + url + ")")
			} else {
				b.WriteString("<" + url + ">")
			}
		default: // bare URL
			url := group(4)
			c.addURL(url, "", "")
			b.WriteString("<" + url + ">")
		}
	}
	b.WriteString(s[last:])

	res := b.String()
	res = strings.ReplaceAll(res, "'''", "**")
	res = strings.ReplaceAll(res, "''", "_")
	return res
}

// stripTags maps the handful of HTML tags the wiki uses to markdown
// and drops the rest.
func (c *parseContext) stripTags(s string) string {
	return tagRE.ReplaceAllStringFunc(s, func(tag string) string {
		name := strings.ToLower(strings.Trim(tag, "</ >"))
		if i := strings.IndexAny(name, " \t/"); i >= 0 {
			name = name[:i]
		}
		closing := strings.HasPrefix(tag, "</")
		switch name {
		case "br":
			return "\n"
		case "blockquote":
			if closing {
				return "\n\n"
			}
			return "\n> "
		case "b", "strong":
			return "**"
		case "i", "em":
			return "_"
		case "s", "strike", "del":
			return "~~"
		case "span", "div", "nowiki":
			return ""
		}
		logger.Warn("unknown tag on %s: %s", c.pageURL, tag)
		return ""
	})
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// wikiQuote turns a page or file name into its URL path form: first
// letter capitalised, spaces as underscores, the rest percent-encoded.
func wikiQuote(name string) string {
	return urlkit.QuoteUTF8(capitalize(strings.ReplaceAll(name, " ", "_")))
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
