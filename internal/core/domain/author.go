package domain

// AuthorBio is a scraped personality page: the author-side counterpart
// of PartialRecord. Like PartialRecord it is best-effort and carries
// failures in Err rather than aborting anything.
type AuthorBio struct {
	// Name is the personality's name as the source spells it.
	Name string `json:"name,omitempty"`

	// Bio is a markdown self-description, if the source has one.
	Bio string `json:"bio,omitempty"`

	// URLs are categorised links found on the page (the page itself,
	// avatar, personal site, ...), classified with the author rule
	// table rather than the game one.
	URLs []URLRef `json:"urls,omitempty"`

	// Err records a fetch or parse failure.
	Err string `json:"error,omitempty"`
}

// HasError reports whether the bio carries a failure reason.
func (b AuthorBio) HasError() bool {
	return b.Err != ""
}

// AuthorErrorBio builds a bio that carries only a failure reason.
func AuthorErrorBio(msg string) AuthorBio {
	return AuthorBio{Err: msg}
}
