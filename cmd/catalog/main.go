package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"shop/pkg/catalog/domain/service"
	catalogmysql "shop/pkg/catalog/infrastructure/mysql"
	"shop/pkg/catalog/transport"
	"shop/pkg/common/database"
	"shop/pkg/common/httpx"
)

type config struct {
	Port        string `envconfig:"PORT" default:"8001"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"shop:shop@tcp(localhost:3306)/products?parseTime=true&multiStatements=true"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:   "catalog",
		Usage:  "product catalogue service",
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
	if err := database.Migrate(db, catalogmysql.Migrations(), "migrations"); err != nil {
		return err
	}

	repo := catalogmysql.NewProductRepository(db)
	products := service.NewProductService(repo)

	router := transport.NewHandler(products).Router()
	metrics := httpx.NewMetrics("product-catalogue")
	router.Use(metrics.Middleware)

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", httpx.LogMiddleware(router))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpx.RunServer(ctx, &http.Server{Addr: ":" + cfg.Port, Handler: root})
}
