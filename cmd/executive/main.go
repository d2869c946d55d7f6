package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/ncr5012/executive/internal/config"
	"github.com/ncr5012/executive/internal/events"
	"github.com/ncr5012/executive/internal/gate"
	"github.com/ncr5012/executive/internal/paths"
	"github.com/ncr5012/executive/internal/registry"
	"github.com/ncr5012/executive/internal/server"
	"github.com/ncr5012/executive/internal/store"
	"github.com/ncr5012/executive/internal/telemetry"
	"github.com/ncr5012/executive/internal/version"
)

func main() {
	configFile := flag.String("config", "executive.toml", "config file path")
	flag.Parse()

	// .env keeps the deployment secrets out of the config file; absence is
	// fine, the environment may already be populated.
	_ = godotenv.Load()

	res := config.Load(*configFile)
	if res.ParseError != nil {
		log.Fatalf("failed to load config %s: %v", res.Path, res.ParseError)
	}
	cfg := res.Config
	config.ApplyEnv(&cfg)

	// The local variant reads its shared secret from the data dir when the
	// environment does not provide one.
	if cfg.Auth.APIKey == "" {
		if key, ok := paths.ReadTrimmed(paths.KeyFile(cfg.Server.DataDir)); ok {
			cfg.Auth.APIKey = key
		}
	}

	st := store.New(paths.TasksFile(cfg.Server.DataDir))
	if err := st.Ensure(); err != nil {
		log.Fatalf("failed to prepare task store: %v", err)
	}

	broker := events.NewBroker()
	reg := registry.New(st, broker)
	g := gate.New(gate.Config{
		APIKey:        cfg.Auth.APIKey,
		TrustLoopback: cfg.Auth.TrustLoopback,
		PasswordHash:  cfg.Auth.PasswordHash,
		CookieSecret:  cfg.Auth.CookieSecret,
	})

	srv := server.NewServer(reg, broker, g, server.Config{
		PublicDir:   cfg.Server.PublicDir,
		ManualTasks: cfg.Features.ManualTasks,
	})

	handler := srv.Handler()
	if cfg.Telemetry.OTLPEndpoint != "" {
		ctx := context.Background()
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    "executive",
			ServiceVersion: version.Version,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			Insecure:       cfg.Telemetry.Insecure,
		})
		if err != nil {
			log.Fatalf("failed to init telemetry: %v", err)
		}
		defer func() { _ = shutdown(ctx) }()
		handler = telemetry.HTTPMiddleware("executive", handler)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("executive %s (%s) listening on http://%s", version.Version, version.Commit, addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}
