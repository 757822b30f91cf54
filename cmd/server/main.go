package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"predex/api/grpcserver"
	"predex/api/httpapi"
	"predex/config"
	"predex/domain/orderbook"
	"predex/infra/kafka"
	"predex/infra/metrics"
	"predex/infra/outbox"
	"predex/jobs/broadcaster"
	"predex/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("PREDEX_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fail to load config: %v", err)
	}
	configureLog(cfg.Env)

	// init context for graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	// ---------------- Domain ----------------

	book := orderbook.NewOrderBook(cfg.Market.Ticker)
	svc := service.NewOrderService(book)

	// ---------------- Metrics ----------------

	reg := metrics.NewRegistry()
	book.AddListener(metrics.NewBookMetrics(reg))
	metrics.RegisterRestingOrders(reg, book)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	// ---------------- Kafka ----------------

	var jobs []<-chan struct{}
	if cfg.Kafka.Enabled() {
		ob, err := outbox.Open(cfg.Outbox.Dir, nil)
		if err != nil {
			log.Fatalf("outbox init failed: %v", err)
		}
		defer ob.Close()
		book.AddListener(outbox.NewListener(ob))

		producer, err := broadcaster.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatalf("event producer init failed: %v", err)
		}
		bc := broadcaster.New(ob, producer, cfg.Kafka.EventsTopic, cfg.Outbox.PollInterval)
		defer bc.Close()
		jobs = append(jobs, bc.Start(rootCtx))

		snapshots := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SnapshotTopic)
		defer snapshots.Close()
		jobs = append(jobs, svc.StartSnapshotJob(rootCtx, snapshots, cfg.Snapshot.Interval, cfg.Market.SnapshotDepth))
	} else {
		log.Warn("no kafka brokers configured, book events are not published")
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("grpc listen %s: %v", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor))
	grpcserver.Register(grpcServer, grpcserver.NewServer(svc, cfg.Market.SnapshotDepth))

	go func() {
		log.WithField("addr", cfg.GRPC.Addr).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorf("gRPC server stopped: %v", err)
			cancel()
		}
	}()

	// ---------------- HTTP ----------------

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(svc, cfg.Market.SnapshotDepth, reg, httpMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server stopped: %v", err)
			cancel()
		}
	}()

	log.WithFields(log.Fields{
		"ticker": cfg.Market.Ticker,
		"env":    cfg.Env,
	}).Info("predex started")

	<-rootCtx.Done()

	// ---------------- Shutdown ----------------

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	for _, done := range jobs {
		<-done
	}
	log.Info("predex stopped")
}

func configureLog(envName config.EnvName) {
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if envName == config.EnvLocal || envName == config.EnvDev {
		log.SetLevel(log.DebugLevel)
	}
	if envName == config.EnvProd {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigC
		log.Info("received shutdown signal")
		cancel()
	}()
}
