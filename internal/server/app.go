// Package server initializes and runs the duochat backend: it wires the
// postgres repositories, the identity/chat/avatar services, the live-feed
// hub and the HTTP endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avolkov/duochat/internal/logging"
	"github.com/avolkov/duochat/internal/server/config"
	"github.com/avolkov/duochat/internal/server/db"
	"github.com/avolkov/duochat/internal/server/httpapi"
	"github.com/avolkov/duochat/internal/server/hub"
	"github.com/avolkov/duochat/internal/server/notify"
	"github.com/avolkov/duochat/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repoMgr *db.PostgresRepositoryManager
	httpSrv *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	rm, err := db.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	identity := services.NewIdentityService(rm.Users(), c)
	chat := services.NewChatService(rm.Messages(), rm.Users(), hub.NewHub(), notify.NewLogNotifier(logger), logger)
	avatars := services.NewAvatarService(c)

	httpSrv := httpapi.NewServer(identity, chat, avatars, logger, c.SecretKey)

	return &App{config: c, logger: logger, repoMgr: rm, httpSrv: httpSrv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.httpSrv.Router(),
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repoMgr.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
