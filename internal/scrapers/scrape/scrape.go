// Package scrape holds the helpers shared by the per-site scrapers.
package scrape

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/ifhub-labs/ifimport/internal/logger"
)

// Markdown converts an HTML fragment to markdown. Conversion failures
// are logged and yield the empty string; a missing description is
// never worth failing an import over.
func Markdown(html string) string {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		logger.Warn("HTML to markdown conversion failed: %v", err)
		return ""
	}
	return strings.TrimSpace(md)
}

// SourceNote is the attribution line appended to every description
// taken from an external site.
func SourceNote(site string) string {
	return fmt.Sprintf("\n\n_(описание взято с сайта %s)_", site)
}

// DescWithNote converts the HTML description and appends the
// attribution line, or returns "" when there is no usable text.
func DescWithNote(html, site string) string {
	md := Markdown(html)
	if md == "" {
		return ""
	}
	return md + SourceNote(site)
}
