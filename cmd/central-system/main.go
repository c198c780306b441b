// Command central-system is the OCPP 1.6-J central system entrypoint.
// Wiring order follows the teacher's cmd/gateway/main.go: config, then
// logger, then storage/cache, then messaging, then domain wiring, then
// the HTTP/metrics servers, then graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charging-platform/ocpp-central-system/internal/authcache"
	"github.com/charging-platform/ocpp-central-system/internal/config"
	"github.com/charging-platform/ocpp-central-system/internal/dispatch"
	"github.com/charging-platform/ocpp-central-system/internal/events"
	"github.com/charging-platform/ocpp-central-system/internal/handlers"
	"github.com/charging-platform/ocpp-central-system/internal/logger"
	"github.com/charging-platform/ocpp-central-system/internal/operator"
	"github.com/charging-platform/ocpp-central-system/internal/outbound"
	"github.com/charging-platform/ocpp-central-system/internal/session"
	"github.com/charging-platform/ocpp-central-system/internal/store"
	"github.com/charging-platform/ocpp-central-system/internal/telemetry"
	"github.com/charging-platform/ocpp-central-system/internal/transport/server"
	"github.com/charging-platform/ocpp-central-system/internal/transport/websocket"
)

func main() {
	// 1. configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. logging
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Async:  cfg.Log.Async,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("logger initialized")

	// 3. persistence
	db, err := store.Open(store.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	log.Info("store opened")

	// 4. idTag/configKey cache
	allowList, err := authcache.New(cfg.Redis, cfg.OCPP.AllowedIdTags)
	if err != nil {
		log.Fatalf("failed to initialize authcache: %v", err)
	}
	log.Info("authcache initialized")

	// 5. telemetry
	var bus events.Bus
	var producer *telemetry.Producer
	if cfg.Kafka.Enabled {
		producer, err = telemetry.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TelemetryTopic, log)
		if err != nil {
			log.Fatalf("failed to initialize telemetry producer: %v", err)
		}
		bus = producer
		log.Info("telemetry producer initialized")
	} else {
		bus = events.NoopBus{}
		log.Info("telemetry disabled, using no-op event bus")
	}

	// 6. domain wiring
	registry := session.NewRegistry(cfg.OCPP.MaxChargers, cfg.OCPP.NumConnectors)

	results := outbound.NewResultValidators(allowList)
	caller := outbound.NewCaller(nil, allowList, cfg.OCPP, log) // Transmitter set below, once the server exists

	snapshots := operator.New(registry, caller, nil, log) // Transmitter set below, once the server exists

	deps := &handlers.Deps{
		AllowList: allowList,
		Store:     db,
		Events:    bus,
		Snapshots: snapshots,
		OCPP:      cfg.OCPP,
	}
	registryOfHandlers := handlers.New(deps)
	dispatcher := dispatch.New(registryOfHandlers, results, log)

	srv := websocket.NewServer(cfg.Server, registry, dispatcher, snapshots, log)
	caller.SetTransmitter(srv)
	snapshots.SetTransmitter(srv)
	log.Info("dispatcher and operator gateway wired to websocket server")

	// 7. metrics server
	go startMetricsServer(cfg.Monitoring.MetricsAddr, log)
	log.Infof("metrics server starting on %s", cfg.Monitoring.MetricsAddr)

	// 8. charger + operator HTTP servers. The charger listener carries the
	// fleet's long-lived connections, so it runs over the tuned TCP server
	// (SO_REUSEADDR, TCP_NODELAY, keepalive) rather than a bare net.Listen.
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.Path, srv.ServeCharger)

	opMux := http.NewServeMux()
	opMux.HandleFunc(cfg.Operator.Path, srv.ServeOperator)

	tcpCfg := server.DefaultTCPServerConfig()
	tcpCfg.Host = cfg.Server.Host
	tcpCfg.Port = cfg.Server.Port
	chargerServer := server.NewOptimizedTCPServer(tcpCfg, mux, log)
	go func() {
		log.Infof("charger server listening on %s%s", cfg.GetServerAddr(), cfg.Server.Path)
		if err := chargerServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("charger server failed: %v", err)
		}
	}()

	operatorListener, err := net.Listen("tcp", cfg.GetOperatorAddr())
	if err != nil {
		log.Fatalf("failed to listen on operator address: %v", err)
	}
	operatorServer := &http.Server{Handler: opMux}
	go func() {
		log.Infof("operator server listening on %s%s", cfg.GetOperatorAddr(), cfg.Operator.Path)
		if err := operatorServer.Serve(operatorListener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("operator server failed: %v", err)
		}
	}()

	log.Infof("%s %s (profile=%s) ready", cfg.App.Name, cfg.App.Version, cfg.App.Profile)

	// 9. graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := chargerServer.Stop(ctx); err != nil {
		log.ErrorWithErr(err, "charger server shutdown error")
	}
	if err := operatorServer.Shutdown(ctx); err != nil {
		log.ErrorWithErr(err, "operator server shutdown error")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.ErrorWithErr(err, "telemetry producer close error")
		}
	}
	if err := allowList.Close(); err != nil {
		log.ErrorWithErr(err, "authcache close error")
	}
	if err := db.Close(); err != nil {
		log.ErrorWithErr(err, "store close error")
	}
	log.Info("server gracefully stopped")
}

func startMetricsServer(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("metrics server failed: %v", err)
	}
}
