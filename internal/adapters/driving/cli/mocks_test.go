package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ifhub-labs/ifimport/internal/adapters/driven/storage/memory"
	"github.com/ifhub-labs/ifimport/internal/core/domain"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driving"
)

type mockImporter struct {
	record     domain.MergedRecord
	urlErrors  map[string]string
	bio        domain.AuthorBio
	candidates []string
	dirty      []string

	importedSeeds []string
}

var _ driving.Importer = (*mockImporter)(nil)

func (m *mockImporter) Import(ctx context.Context, seeds ...string) (domain.MergedRecord, map[string]string, error) {
	m.importedSeeds = seeds
	return m.record, m.urlErrors, ctx.Err()
}

func (m *mockImporter) ImportAuthor(ctx context.Context, url string) domain.AuthorBio {
	return m.bio
}

func (m *mockImporter) IsFamiliarURL(url, category string) bool { return false }

func (m *mockImporter) URLCandidates(ctx context.Context) ([]string, error) {
	return m.candidates, nil
}

func (m *mockImporter) DirtyURLs(ctx context.Context, age time.Duration) ([]string, error) {
	return m.dirty, nil
}

type mockBulk struct {
	report    driving.BulkReport
	runs      int
	reimports int
}

var _ driving.BulkImporter = (*mockBulk)(nil)

func (m *mockBulk) Run(ctx context.Context) (driving.BulkReport, error) {
	m.runs++
	return m.report, nil
}

func (m *mockBulk) Reimport(ctx context.Context) error {
	m.reimports++
	return nil
}

// seededStore builds an in-memory record store preloaded with games.
func seededStore(t *testing.T, games ...domain.Game) *memory.RecordStore {
	t.Helper()
	store := memory.NewRecordStore()
	for _, g := range games {
		_, err := store.Save(context.Background(), g)
		require.NoError(t, err)
	}
	return store
}

// runCommand executes the root command with the given services and
// arguments, returning everything it printed.
func runCommand(imp *mockImporter, bulk *mockBulk, store driven.RecordStore, args ...string) (string, error) {
	SetServices(imp, bulk, store)
	defer SetServices(nil, nil, nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
