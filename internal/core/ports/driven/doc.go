// Package driven defines the interfaces the importer core depends on:
// site scrapers, the page fetcher and the record store. Adapters under
// internal/adapters/driven and internal/scrapers implement them.
package driven
