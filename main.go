// main.go - Entry point and dependency injection
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ameet2r/workout/internal/database"
	"github.com/ameet2r/workout/internal/ingest"
	"github.com/ameet2r/workout/internal/web"

	_ "github.com/mattn/go-sqlite3"
)

type App struct {
	db       *database.SQLiteDB
	cron     *cron.Cron
	server   *http.Server
	shutdown chan os.Signal
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	app := &App{
		shutdown: make(chan os.Signal, 1),
	}

	if err := app.init(); err != nil {
		log.Fatal("Failed to initialize app:", err)
	}

	app.start()

	signal.Notify(app.shutdown, os.Interrupt, syscall.SIGTERM)
	<-app.shutdown

	app.stop()
}

func (app *App) init() error {
	db, err := database.NewSQLiteDB(databasePath())
	if err != nil {
		return err
	}
	app.db = db

	ingestService := ingest.NewService(app.db)

	app.cron = cron.New()

	router := gin.Default()
	handler := web.NewWebHandler(app.db, ingestService)
	handler.RegisterRoutes(router)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8888"
	}
	app.server = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}

func (app *App) start() {
	// Nightly sweep of time-series batches left behind by deleted sessions.
	app.cron.AddFunc("@daily", func() {
		removed, err := app.db.SweepOrphanBatches()
		if err != nil {
			log.Printf("Orphan batch sweep failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("Orphan batch sweep removed %d batches", removed)
		}
	})
	app.cron.Start()

	go func() {
		log.Printf("Server starting on %s", app.server.Addr)
		if err := app.server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()
}

func (app *App) stop() {
	log.Println("Shutting down...")

	app.cron.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if app.db != nil {
		app.db.Close()
	}

	log.Println("Shutdown complete")
}

func databasePath() string {
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		return dbPath
	}
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Printf("Failed to create data dir %s: %v", dataDir, err)
	}
	return filepath.Join(dataDir, "workout.db")
}
