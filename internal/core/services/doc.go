// Package services implements the importer core: dispatching URLs to
// site scrapers, the transitive fetch-and-merge reconciliation of one
// game, and the bulk import job that reconciles discovered games
// against the stored catalogue.
package services
