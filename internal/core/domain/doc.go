// Package domain contains the core types of the game importer.
// The central type is PartialRecord, the common schema every site
// scraper produces, and MergedRecord, the reconciled result of folding
// several partial records describing the same game into one.
//
// The JSON field names of these types are contractual: downstream
// consumers (the catalogue web application) read them verbatim, so they
// must not change.
package domain
