// Package urlkit normalises URLs for comparison. Every place the
// importer compares two URLs — the visited set of a traversal, the
// dedup key of a link list, the index of known games — must go through
// HashizeURL, or merging silently breaks on encoding differences.
package urlkit

import (
	"net/url"
	"strings"
)

// quoteSafe are the bytes QuoteUTF8 leaves unescaped, on top of
// alphanumerics. Chosen to match how the catalogue has always encoded
// its URLs, so hashes stay stable across reimports.
const quoteSafe = "/+=&?%:;@!#$*()_-.~"

func isSafeByte(b byte) bool {
	if b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' {
		return true
	}
	return strings.IndexByte(quoteSafe, b) >= 0
}

const upperhex = "0123456789ABCDEF"

// QuoteUTF8 percent-encodes every byte outside the safe set. Bytes
// that are already percent-escapes are left alone ('%' is safe), so
// applying QuoteUTF8 to raw UTF-8 and to an already-quoted form of the
// same URL yields the same string.
func QuoteUTF8(url string) string {
	var b strings.Builder
	b.Grow(len(url))
	for i := 0; i < len(url); i++ {
		c := url[i]
		if isSafeByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// HashizeURL reduces a URL to its comparison form: consistently
// percent-encoded, scheme and fragment dropped, host+path+query kept.
// http and https variants of the same page, fragment-only differences
// and percent-encoding variants of the same bytes all collide.
func HashizeURL(url string) string {
	u := QuoteUTF8(url)

	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}

	// Replace "scheme://" with the scheme-relative "//". URLs without
	// a scheme (including relative ones) are kept as-is.
	if i := strings.Index(u, "://"); i >= 0 && isSchemeName(u[:i]) {
		u = u[i+1:] // keep the "//"
	}
	return u
}

// Join resolves ref against base, the way a browser resolves a page's
// relative link. Unparseable inputs return ref unchanged.
func Join(base, ref string) string {
	b, err := url.Parse(QuoteUTF8(base))
	if err != nil {
		return ref
	}
	r, err := url.Parse(QuoteUTF8(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// isSchemeName reports whether s is a valid URI scheme (RFC 3986:
// ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )).
func isSchemeName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
