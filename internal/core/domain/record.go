package domain

// UnsetPriority is the priority assigned to records whose scraper did
// not report one (error records, mostly). It sorts below every real
// source so such records never win a scalar-field tie-break.
const UnsetPriority = -1000

// AuthorRef is a single author credit inside a record.
type AuthorRef struct {
	// RoleSlug identifies the kind of credit (author, artist, tester,
	// translator, character, porter, member, programmer, composer).
	RoleSlug string `json:"role_slug"`

	// Name is the author's name exactly as the source spells it.
	// Identity is case-sensitive; normalisation happens elsewhere in
	// the catalogue, not here.
	Name string `json:"name"`

	// URL optionally points at the author's personality page.
	URL string `json:"url,omitempty"`

	// URLDesc is the human-readable description for URL.
	URLDesc string `json:"urldesc,omitempty"`
}

// AuthorKey is the deduplication identity of an AuthorRef.
type AuthorKey struct {
	RoleSlug string
	Name     string
}

// Key returns the deduplication identity for this credit.
func (a AuthorRef) Key() AuthorKey {
	return AuthorKey{RoleSlug: a.RoleSlug, Name: a.Name}
}

// TagRef is a single tag on a record. Exactly which fields are set
// depends on the kind of tag: curated tags carry only TagSlug, raw
// source tags carry CatSlug+Tag.
type TagRef struct {
	// CatSlug is the tag category (platform, language, tag, country,
	// genre, version, ifid, competition).
	CatSlug string `json:"cat_slug,omitempty"`

	// TagSlug names a curated tag directly (e.g. "parser", "os_web").
	TagSlug string `json:"tag_slug,omitempty"`

	// Tag is the free-form tag value as the source spelled it.
	Tag string `json:"tag,omitempty"`
}

// TagRef is comparable; the struct value itself is the deduplication
// identity (empty strings match empty strings, same as the source
// system's tuple equality).

// URLRef is a categorised link attached to a record.
type URLRef struct {
	// CatSlug is the link category (game_page, download_direct,
	// download_landing, play_online, poster, screenshot, video, forum,
	// review, unknown, other_site, ...).
	CatSlug string `json:"urlcat_slug"`

	// Description is the human-readable link text.
	Description string `json:"description"`

	// URL is the link target.
	URL string `json:"url"`
}

// PartialRecord is the output of one scraper call for one URL.
// All fields are best-effort: a record may carry both an Err and
// whatever fields the scraper managed to extract before failing.
type PartialRecord struct {
	// Title is the game title, or empty if the source has none.
	Title string `json:"title,omitempty"`

	// Desc is a markdown description.
	Desc string `json:"desc,omitempty"`

	// ReleaseDate is the release date if the source knows it.
	ReleaseDate *Date `json:"release_date,omitempty"`

	// Priority is the source trust ranking. Higher wins scalar-field
	// tie-breaks during a merge. Scrapers set it explicitly;
	// constructors for error records use UnsetPriority.
	Priority int `json:"priority,omitempty"`

	// Authors, Tags and URLs preserve source order.
	Authors []AuthorRef `json:"authors,omitempty"`
	Tags    []TagRef    `json:"tags,omitempty"`
	URLs    []URLRef    `json:"urls,omitempty"`

	// Err records a fetch or parse failure for this URL only.
	// It never aborts the import that requested the record.
	Err string `json:"error,omitempty"`
}

// HasError reports whether the record carries a failure reason.
func (r PartialRecord) HasError() bool {
	return r.Err != ""
}

// ErrorRecord builds a record that carries nothing but a failure
// reason, ranked below every real source.
func ErrorRecord(msg string) PartialRecord {
	return PartialRecord{Err: msg, Priority: UnsetPriority}
}

// MergedRecord is the reconciled union of several partial records
// describing the same game. It has the same JSON shape as
// PartialRecord; the difference is in how it is built: scalars are
// first-writer-wins in priority order, descriptions are concatenated,
// and the collections are deduplicated by their identity keys.
type MergedRecord struct {
	Title       string      `json:"title,omitempty"`
	Desc        string      `json:"desc,omitempty"`
	ReleaseDate *Date       `json:"release_date,omitempty"`
	Authors     []AuthorRef `json:"authors,omitempty"`
	Tags        []TagRef    `json:"tags,omitempty"`
	URLs        []URLRef    `json:"urls,omitempty"`
	Err         string      `json:"error,omitempty"`
}

// IsEmpty reports whether nothing usable was merged in.
func (m MergedRecord) IsEmpty() bool {
	return m.Title == "" && m.Desc == "" && len(m.Authors) == 0 &&
		len(m.Tags) == 0 && len(m.URLs) == 0
}
