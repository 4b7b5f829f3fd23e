package domain

import "time"

// Game is a stored, reconciled game: a MergedRecord plus the bookkeeping
// the bulk importer needs to recognise the same game again on the next
// run. Persistence itself lives behind the RecordStore port.
type Game struct {
	// ID is the store-assigned identifier.
	ID string

	// Title is the canonical title (copy of Record.Title, kept
	// separate so stores can index it).
	Title string

	// Record is the reconciled record.
	Record MergedRecord

	// URLHashes are the hashized forms of the record's identifying
	// URLs (game pages, downloads, play-online links). The bulk
	// importer matches candidate URLs against these before falling
	// back to title similarity.
	URLHashes []string

	// Imported reports whether the importer created this entry itself.
	// Hand-edited games are never overwritten by the robot.
	Imported bool

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}
