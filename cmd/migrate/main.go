// Command migrate manages the circulation schema.
//
//	migrate [up|down|status]
//
// The default command is up.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	migrations "github.com/ghuser/circulation/migrations/circulation"
	"github.com/ghuser/circulation/pkg/config"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/migrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	if err := run(context.Background(), cmd, cfg.DatabaseURL, log); err != nil {
		log.Error("migration failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, dbURL string, log logger.Logger) error {
	db, err := migrator.Open(dbURL)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	m, err := migrator.New(db, migrations.FS)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := m.Up(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "versions", applied)
	case "down":
		version, err := m.Down(ctx)
		if err != nil {
			return err
		}
		log.Info("migration rolled back", "version", version)
	case "status":
		pending, err := m.Pending(ctx)
		if err != nil {
			return err
		}
		log.Info("migration status", "pending", pending)
	default:
		return fmt.Errorf("unknown command %q (want up, down or status)", cmd)
	}
	return nil
}
