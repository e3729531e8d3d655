package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"starkpay/internal/config"
	"starkpay/internal/db"
	"starkpay/internal/logging"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	flag.Parse()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(cfg.IsProduction(), cfg.LogLevel)

	database, err := db.Connect(cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema_migrations")
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read migrations")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal().Err(err).Msg("failed to read migration state")
		}
		if exists {
			continue
		}
		if err := applyFile(database, file); err != nil {
			log.Fatal().Err(err).Str("file", filename).Msg("failed to apply migration")
		}
		log.Info().Str("file", filename).Msg("applied migration")
		applied++
	}
	log.Info().Int("applied", applied).Msg("migrations complete")
}

// applyFile runs the up section of path and records it in one transaction.
func applyFile(database *sqlx.DB, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := database.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitSQL(upSection(string(content))) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\n%s", err, stmt)
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filepath.Base(path)); err != nil {
		return err
	}
	return tx.Commit()
}

func upSection(content string) string {
	up, _, _ := strings.Cut(content, "-- +migrate Down")
	return up
}

// splitSQL splits on statement-terminating semicolons. Comment lines are
// dropped. Function bodies with inner semicolons are not supported.
func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
