// Package backend runs the development backend: PostgreSQL rows, presigned
// S3 uploads and the gRPC mutation API.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/clipsync/internal/backend/config"
	gs "github.com/dmitrijs2005/clipsync/internal/backend/grpc"
	"github.com/dmitrijs2005/clipsync/internal/backend/migrations"
	"github.com/dmitrijs2005/clipsync/internal/backend/rows"
	"github.com/dmitrijs2005/clipsync/internal/backend/storage"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	presigner, err := storage.NewS3Presigner(ctx, storage.Options{
		User:          c.S3RootUser,
		Password:      c.S3RootPassword,
		Region:        c.S3Region,
		Endpoint:      c.S3BaseEndpoint,
		PublicBaseURL: c.PublicBaseURL,
		Expiry:        c.PresignExpiry,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, rows.NewPostgresStore(db), presigner, c.SecretKey)

	return &App{config: c, logger: logger, db: db, server: s}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or ctx is done.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close", "error", cerr)
	}
	return err
}
