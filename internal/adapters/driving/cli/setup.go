package cli

import (
	"fmt"

	"github.com/ifhub-labs/ifimport/internal/adapters/driven/config/file"
	"github.com/ifhub-labs/ifimport/internal/adapters/driven/fetch"
	"github.com/ifhub-labs/ifimport/internal/adapters/driven/storage/sqlite"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/core/ports/driving"
	"github.com/ifhub-labs/ifimport/internal/core/services"
	"github.com/ifhub-labs/ifimport/internal/enrich"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/scrapers/apero"
	"github.com/ifhub-labs/ifimport/internal/scrapers/ifiction"
	"github.com/ifhub-labs/ifimport/internal/scrapers/ifwiki"
	"github.com/ifhub-labs/ifimport/internal/scrapers/instead"
	"github.com/ifhub-labs/ifimport/internal/scrapers/plut"
	"github.com/ifhub-labs/ifimport/internal/scrapers/qspsu"
	"github.com/ifhub-labs/ifimport/internal/scrapers/questbook"
	"github.com/ifhub-labs/ifimport/internal/scrapers/rilarhiv"
)

// The services every command runs against. Wired from the config file
// on first use; tests inject fakes through SetServices instead.
var (
	importService driving.Importer
	bulkService   driving.BulkImporter
	recordStore   driven.RecordStore

	// ownedStore marks a store opened by setup itself, which teardown
	// must close. Injected stores belong to the injector.
	ownedStore bool
)

// SetServices injects the services the commands run against,
// bypassing config-file wiring.
func SetServices(imp driving.Importer, bulk driving.BulkImporter, store driven.RecordStore) {
	importService = imp
	bulkService = bulk
	recordStore = store
	ownedStore = false
}

// setup wires the real services from the configuration file. A second
// call is a no-op.
func setup() error {
	if importService != nil {
		return nil
	}

	path := configPath
	if path == "" {
		p, err := file.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		path = p
	}
	cfg, err := file.Load(path)
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Options{
		CacheDir:      cfg.CacheDir,
		Timeout:       cfg.Timeout(),
		RatePerSecond: cfg.RatePerSecond,
		UserAgent:     cfg.UserAgent,
	})

	// Registration order is the dispatch order: the most trusted
	// source that claims a URL wins.
	all := []driven.Scraper{
		ifwiki.New(fetcher),
		instead.New(fetcher),
		questbook.New(fetcher),
		plut.New(fetcher),
		apero.New(fetcher),
		ifiction.New(fetcher),
		qspsu.New(fetcher),
		rilarhiv.New(fetcher),
	}
	scrapers := make([]driven.Scraper, 0, len(all))
	for _, s := range all {
		if cfg.ScraperDisabled(s.Name()) {
			logger.Debug("scraper %s disabled by config", s.Name())
			continue
		}
		scrapers = append(scrapers, s)
	}

	importService = newImportService(scrapers...)

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening game store: %w", err)
	}
	recordStore = store
	ownedStore = true

	bulk := services.NewBulkImportService(importService, store)
	bulk.DirtyAge = cfg.DirtyAge()
	bulkService = bulk

	return nil
}

// newImportService builds the import service the way every command
// uses it: with the full default enrichment rule table.
func newImportService(scrapers ...driven.Scraper) driving.Importer {
	return services.NewImportService(enrich.Default(), scrapers...)
}

func teardown() error {
	if recordStore != nil && ownedStore {
		ownedStore = false
		return recordStore.Close()
	}
	return nil
}
