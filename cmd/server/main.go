package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/apflow/roiserver/internal/config"
	"github.com/apflow/roiserver/internal/db"
	"github.com/apflow/roiserver/internal/migrations"
	"github.com/apflow/roiserver/internal/report"
	"github.com/apflow/roiserver/internal/roi"
	"github.com/apflow/roiserver/internal/scenario"
	"github.com/apflow/roiserver/internal/seed"
)

type server struct {
	engine    *roi.Engine
	scenarios *scenario.Repo
	reports   *report.Service
	db        *sql.DB
	log       *logrus.Logger
}

func main() {
	cfg := config.Load()
	log := logrus.New()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			log.Fatalf("failed to run database migrations: %v", err)
		}
	}

	engine := roi.NewEngine(roi.DefaultConstants())
	scenarios := scenario.NewRepo(database, engine)
	reports := report.NewService(database, scenarios)

	if cfg.SeedDemo {
		stats, err := seed.Run(scenarios)
		if err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		log.WithField("inserts", stats.Inserts).Info("seed complete")
	}

	srv := &server{
		engine:    engine,
		scenarios: scenarios,
		reports:   reports,
		db:        database,
		log:       log,
	}

	addr := ":" + cfg.Port
	log.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, newRouter(srv)); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func newRouter(srv *server) http.Handler {
	r := chi.NewRouter()
	r.Use(srv.requestLogger)
	r.Get("/healthz", srv.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/simulate", srv.handleSimulate)
		r.Post("/scenarios", srv.handleScenarioCreate)
		r.Get("/scenarios", srv.handleScenarioList)
		r.Get("/scenarios/{id}", srv.handleScenarioGet)
		r.Put("/scenarios/{id}", srv.handleScenarioUpdate)
		r.Delete("/scenarios/{id}", srv.handleScenarioDelete)
		r.Post("/reports", srv.handleReportGenerate)
		r.Get("/reports/{id}", srv.handleReportGet)
	})
	return r
}
