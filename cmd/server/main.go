package main

import (
	"database/sql"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CMDAEW/isokalk/internal/catalog"
	"github.com/CMDAEW/isokalk/internal/config"
	"github.com/CMDAEW/isokalk/internal/db"
	"github.com/CMDAEW/isokalk/internal/invoice"
	"github.com/CMDAEW/isokalk/internal/logging"
	"github.com/CMDAEW/isokalk/internal/migrations"
	"github.com/CMDAEW/isokalk/internal/seed"
)

type server struct {
	db       *sql.DB
	invoices *invoice.Store
	logger   *zap.Logger
	currency string

	// catalog is swapped as a whole after a successful re-import; every
	// request works against the handle it picked up.
	catalog atomic.Pointer[catalog.Store]
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	stats, err := seed.Run(database)
	if err != nil {
		logger.Fatal("failed to seed default factor tables", zap.Error(err))
	}
	if stats.Inserts > 0 {
		logger.Info("seeded default factor tables", zap.Int("inserts", stats.Inserts))
	}

	srv := &server{
		db:       database,
		invoices: invoice.NewStore(database),
		logger:   logger,
		currency: cfg.Currency,
	}
	if err := srv.reloadCatalog(); err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/components", s.handleComponents)
		r.Get("/options", s.handleOptions)
		r.Post("/resolve", s.handleResolve)
		r.Post("/catalog/import", s.handleCatalogImport)
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleInvoiceList)
			r.Post("/", s.handleInvoiceCreate)
			r.Get("/{id}", s.handleInvoiceGet)
			r.Put("/{id}/surcharges", s.handleInvoiceSurcharges)
			r.Post("/{id}/lines", s.handleLineAdd)
			r.Delete("/{id}/lines/{lineID}", s.handleLineRemove)
			r.Get("/{id}/document", s.handleInvoiceDocument)
		})
	})
	return r
}

// store returns the current catalog handle.
func (s *server) store() *catalog.Store {
	return s.catalog.Load()
}

// reloadCatalog builds a fresh store from the database and swaps it in.
func (s *server) reloadCatalog() error {
	store, err := catalog.Load(s.db)
	if err != nil {
		return err
	}
	s.catalog.Store(store)
	if s.logger != nil {
		s.logger.Info("catalog loaded", zap.Int64("version", store.Version()))
	}
	return nil
}
