// Package server initializes and runs the auth API server.
// It opens the database, applies migrations, wires the account services and
// serves HTTP until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/koulio-auth/internal/buildinfo"
	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/dmitrijs2005/koulio-auth/internal/server/config"
	"github.com/dmitrijs2005/koulio-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/koulio-auth/internal/server/rest"
	"github.com/dmitrijs2005/koulio-auth/internal/server/services"
	"github.com/dmitrijs2005/koulio-auth/internal/server/telemetry"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const serviceName = "koulio-auth"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	userService *services.UserService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	tokens := auth.NewTokenService([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	hasher := auth.NewPasswordHasher(c.BcryptCost, logger)
	us := services.NewUserService(db, rm, hasher, tokens, c, logger)

	return &App{config: c, logger: logger, db: db, repomanager: rm, tokens: tokens, userService: us}, nil
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

func (app *App) newRouter() *gin.Engine {
	gin.SetMode(app.config.GinMode)
	h := rest.NewHandler(app.userService, app.logger)
	return rest.NewRouter(serviceName, h, app.tokens, app.logger)
}

// Run applies migrations and serves HTTP until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version)

	if app.config.GeneratedSecret {
		app.logger.Warn(ctx, "no JWT secret configured, using a random one; tokens will not survive a restart")
	}

	app.initSignalHandler(cancelFunc)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, buildinfo.Version, app.config.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry init error: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			app.logger.Error(ctx, "telemetry shutdown error", "error", err)
		}
	}()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	s := rest.NewServer(app.config.EndpointAddrHTTP, app.newRouter(), app.config.ShutdownTimeout, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}

	app.logger.Info(context.Background(), "App stopped")
	return nil
}
