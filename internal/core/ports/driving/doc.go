// Package driving defines the interfaces through which callers (the
// CLI, a task-queue worker) drive the importer core.
package driving
