package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"shop/pkg/auth/domain/service"
	authmysql "shop/pkg/auth/infrastructure/mysql"
	"shop/pkg/auth/password"
	"shop/pkg/auth/token"
	"shop/pkg/auth/transport"
	"shop/pkg/common/database"
	"shop/pkg/common/httpx"
)

type config struct {
	Port        string        `envconfig:"PORT" default:"8002"`
	DatabaseDSN string        `envconfig:"DATABASE_DSN" default:"shop:shop@tcp(localhost:3306)/auth?parseTime=true&multiStatements=true"`
	JWTSecret   string        `envconfig:"JWT_SECRET" default:"your-secret-key-change-in-production"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:   "auth",
		Usage:  "user authentication service",
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("service failed")
	}
}

func run(_ *cli.Context) error {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, authmysql.Migrations(), "migrations"); err != nil {
		return err
	}

	repo := authmysql.NewUserRepository(db)
	users := service.NewUserService(repo, password.NewBcryptManager())
	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	router := transport.NewHandler(users, tokens).Router()
	metrics := httpx.NewMetrics("user-authentication")
	router.Use(metrics.Middleware)

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", httpx.LogMiddleware(router))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpx.RunServer(ctx, &http.Server{Addr: ":" + cfg.Port, Handler: root})
}
