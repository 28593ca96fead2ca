// Package cli is the terminal shell of the duochat client: a REPL that
// drives sign-up, sign-in, partner selection and live chat over the
// application services.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/client/config"
	"github.com/avolkov/duochat/internal/client/push"
	"github.com/avolkov/duochat/internal/client/services"
	"github.com/avolkov/duochat/internal/client/session"
	"github.com/avolkov/duochat/internal/logging"
)

type App struct {
	config   *config.Config
	api      api.Client
	identity *services.IdentityService
	push     *services.PushManager
	logger   logging.Logger
	session  session.Session
	reader   *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	db, err := session.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(db)
	apiClient := api.NewHTTPClient(c.ServerEndpointAddr)
	tokens := push.NewStaticSource()
	pm := services.NewPushManager(apiClient, tokens, store, logger)
	is := services.NewIdentityService(apiClient, store, pm, logger)

	return &App{
		config:   c,
		api:      apiClient,
		identity: is,
		push:     pm,
		logger:   logger,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	stopWatch := a.push.Watch(ctx)
	defer stopWatch()

	if sess, err := a.identity.Session(ctx); err == nil {
		a.session = sess
	}

	a.Root(ctx)
}

func (a *App) isSignedIn() bool {
	return a.session.SignedIn
}
