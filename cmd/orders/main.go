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

	"shop/pkg/common/database"
	"shop/pkg/common/httpx"
	"shop/pkg/orders/domain/service"
	"shop/pkg/orders/gateway"
	ordersmysql "shop/pkg/orders/infrastructure/mysql"
	"shop/pkg/orders/transport"
)

type config struct {
	Port              string        `envconfig:"PORT" default:"8000"`
	DatabaseDSN       string        `envconfig:"DATABASE_DSN" default:"shop:shop@tcp(localhost:3306)/orders?parseTime=true&multiStatements=true"`
	ProductServiceURL string        `envconfig:"PRODUCT_SERVICE_URL" default:"http://localhost:8001"`
	AuthServiceURL    string        `envconfig:"AUTH_SERVICE_URL" default:"http://localhost:8002"`
	ClientTimeout     time.Duration `envconfig:"CLIENT_TIMEOUT" default:"5s"`
}

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:   "orders",
		Usage:  "order processing service",
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
	if err := database.Migrate(db, ordersmysql.Migrations(), "migrations"); err != nil {
		return err
	}

	repo := ordersmysql.NewOrderRepository(db)
	catalog := gateway.NewCatalogClient(cfg.ProductServiceURL, cfg.ClientTimeout)
	verifier := gateway.NewAuthClient(cfg.AuthServiceURL, cfg.ClientTimeout)
	orders := service.NewOrderService(repo, catalog)

	router := transport.NewHandler(orders, verifier).Router()
	metrics := httpx.NewMetrics("order-processing")
	router.Use(metrics.Middleware)

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.Handler())
	root.Handle("/", httpx.LogMiddleware(router))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return httpx.RunServer(ctx, &http.Server{Addr: ":" + cfg.Port, Handler: root})
}
