package enrich

import (
	"strings"

	"github.com/ifhub-labs/ifimport/internal/core/domain"
)

// Default builds the production rule table. The platform lists mirror
// what the catalogue has accumulated over the years; keep them sorted
// within each rule.
func Default() *Enricher {
	e := New()

	e.AddRule(
		HasTag("platform",
			`6days.*`,
			`adrift`,
			`r?inform.*`,
			`r?tads.*`,
			`tom 2`,
			`ярил`,
		),
		AddTag("parser"))
	e.AddRule(
		HasTag("platform",
			`.*qsp`,
			`.*urq( .*)?`,
			`apero`,
			`axma.*`,
			`ink.*`,
			`instead`,
			`questbox`,
			`tweebox`,
			`twine`,
			`аперо`,
			`квестер`,
		),
		AddTag("menu"))
	e.AddRule(
		HasTag("platform",
			`aeroqsp`,
			`apero`,
			`axma.*`,
			`instead`,
			`r?inform.*`,
			`tweebox`,
			`twine`,
			`urqw`,
			`аперо`,
			`квестер`,
		),
		AddTag("os_web"))
	e.AddRule(
		HasTag("platform",
			`.*qsp`,
			`akurq.*`,
			`fireurq`,
			`r?inform.*`,
			`r?tads.*`,
			`ripurq`,
		),
		AddTag("os_win"))
	e.AddRule(
		HasTag("platform", `r?tads.*`, `r?inform.*`),
		AddTag("os_linux", "os_macos"))
	e.AddRule(
		HasTag("platform", `dosurq`),
		AddTag("os_dos"))
	e.AddRule(
		And(HasTag("platform", `qsp`), HasURLCategory("play_online")),
		AddTag("os_web"))
	e.AddRule(
		Or(HasTag("platform", `.*urq.*`), IsFromSite("game_page", "urq.plut.info")),
		CloneURL("download_direct", "play_in_interpreter", "Открыть в UrqW: %s"))
	e.AddRule(
		Not(HasTag("language", `.*`)),
		AddRawTag("language", "русский"))

	e.AddFunc(LowerCaseTags)
	e.AddFunc(TagsToGenre)
	return e
}

// LowerCaseTags folds free-form "tag"-category values to lower case so
// the genre mapping and dedup see one spelling.
func LowerCaseTags(rec *domain.MergedRecord) {
	for i, t := range rec.Tags {
		if t.CatSlug == "tag" && t.Tag != "" {
			rec.Tags[i].Tag = strings.ToLower(t.Tag)
		}
	}
}

// genreMapping maps a free-form source tag to a curated genre slug.
// When replace is true the source tag is consumed; otherwise the genre
// is added alongside it.
type genreMapping struct {
	slug    string
	replace bool
}

var tagToGenre = map[string]genreMapping{
	"18+":                  {"g_adult", true},
	"action":               {"g_action", false},
	"horror":               {"g_horror", false},
	"rpg":                  {"g_rpg", true},
	"боевик":               {"g_action", true},
	"викторина":            {"g_puzzle", false},
	"головоломка":          {"g_puzzle", true},
	"головоломки":          {"g_puzzle", true},
	"детектив":             {"g_detective", true},
	"детская":              {"g_kids", true},
	"детское":              {"g_kids", true},
	"дистопия":             {"g_dystopy", true},
	"доисторическое":       {"g_historical", true},
	"дорожное приключение": {"g_adventure", true},
	"драма":                {"g_drama", true},
	"историческое":         {"g_historical", true},
	"казка":                {"g_fairytale", true},
	"космос":               {"g_scifi", false},
	"логическая":           {"g_puzzle", true},
	"мистика":              {"g_mystic", true},
	"містыка":              {"g_mystic", true},
	"научная фантастика":   {"g_scifi", false},
	"непонятное":           {"g_experimental", false},
	"паззл":                {"g_puzzle", true},
	"паззлы":               {"g_puzzle", true},
	"пазл":                 {"g_puzzle", true},
	"пазлы":                {"g_puzzle", true},
	"постапокалипсис":      {"g_dystopy", false},
	"постапокалиптика":     {"g_dystopy", false},
	"преступление":         {"g_detective", false},
	"приключение":          {"g_adventure", true},
	"приключения":          {"g_adventure", true},
	"рамантыка":            {"g_romance", true},
	"ребус":                {"g_puzzle", false},
	"роботы":               {"g_scifi", false},
	"романтика":            {"g_romance", true},
	"рпг":                  {"g_rpg", true},
	"секс":                 {"g_adult", false},
	"симулятор":            {"g_simulation", true},
	"сказка":               {"g_fairytale", true},
	"сюр":                  {"g_experimental", false},
	"сюрреализм":           {"g_experimental", false},
	"триллер":              {"g_horror", false},
	"убийство":             {"g_detective", false},
	"ужас":                 {"g_horror", true},
	"ужасы":                {"g_horror", true},
	"фантастика":           {"g_scifi", true},
	"фанфик":               {"g_fanfic", true},
	"фентези":              {"g_fantasy", true},
	"фэнтези":              {"g_fantasy", true},
	"хоррор":               {"g_horror", false},
	"черный юмор":          {"g_humor", false},
	"чёрный юмор":          {"g_humor", false},
	"чёрти что":            {"g_experimental", false},
	"шутер":                {"g_action", false},
	"экспериментальное":    {"g_experimental", true},
	"экшн":                 {"g_action", false},
	"эротика":              {"g_adult", false},
	"юмор":                 {"g_humor", true},
}

// TagsToGenre converts recognised free-form tags into curated genre
// tags, replacing or supplementing per the mapping table.
func TagsToGenre(rec *domain.MergedRecord) {
	var extra []domain.TagRef
	for i, t := range rec.Tags {
		if t.CatSlug != "tag" {
			continue
		}
		m, ok := tagToGenre[strings.ToLower(t.Tag)]
		if !ok {
			continue
		}
		genre := domain.TagRef{CatSlug: "genre", TagSlug: m.slug}
		if m.replace {
			rec.Tags[i] = genre
		} else {
			extra = append(extra, genre)
		}
	}
	rec.Tags = append(rec.Tags, extra...)
}
