package domain

import "errors"

// Sentinel errors for the store and service layers. Scraper failures
// never surface as Go errors; they travel inside PartialRecord.Err.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed input data.
	ErrInvalidInput = errors.New("invalid input")
)

// User-facing failure reasons, recorded in PartialRecord.Err. They are
// shown verbatim in the catalogue UI, hence the Russian.
const (
	// MsgUnknownResource is used when no scraper understands a URL.
	MsgUnknownResource = "Ссылка на неизвестный ресурс."

	// MsgFetchFailed is used for network/HTTP failures on one URL.
	MsgFetchFailed = "Не открывается что-то этот URL."

	// MsgNoGameFound is used when a page fetched fine but no game
	// could be located in the markup.
	MsgNoGameFound = "Не найдена игра на странице"

	// MsgParseFailed is used when markup defeated the parser entirely.
	MsgParseFailed = "Какая-то ошибка при парсинге. Надо сказать админам."

	// MsgNotAuthorURL is used when an author import is asked about a
	// URL that is not a personality page.
	MsgNotAuthorURL = "Не похож URL на автора."
)
