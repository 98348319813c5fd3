package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"tasktracker/internal/blobstore"
	"tasktracker/internal/config"
	"tasktracker/internal/logging"
	"tasktracker/internal/server"
	"tasktracker/internal/taskdb"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.LoadServer()
	log := logging.New(cfg.LogLevel)

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		log.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(db, cfg.MigrationsDir); err != nil {
		log.Errorf("migrations: %v", err)
		os.Exit(1)
	}

	blobs, err := blobstore.New(cfg.BlobDir)
	if err != nil {
		log.Errorf("blob store: %v", err)
		os.Exit(1)
	}

	repo := taskdb.NewRepo(db)
	hub := server.NewHub()
	r := server.NewRouter(cfg, log, server.NewTaskHandler(repo, hub), server.NewBlobHandler(blobs))

	retention, err := server.StartRetention(cfg.RetentionCron, cfg.RetentionAge, repo, log)
	if err != nil {
		log.Errorf("retention schedule: %v", err)
		os.Exit(1)
	}
	if retention != nil {
		defer retention.Stop()
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Infof("tasksyncd listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("serve: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func runMigrations(db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		if err := applySQLFile(db, filepath.Join(dir, f)); err != nil {
			return err
		}
	}
	return nil
}

func applySQLFile(db *sql.DB, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err = db.Exec(sb.String())
	return err
}
