// Package main runs the comment-to-token bot: it polls an Instagram
// business account for deploy commands, scrapes the commenter's profile
// for token artwork, launches the token on pump.fun and replies with the
// result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"feedo/internal/deployer"
	"feedo/internal/feed"
	"feedo/internal/idhash"
	"feedo/internal/observability"
	"feedo/internal/orchestrator"
	"feedo/internal/scraper"
	"feedo/internal/solana"
	"feedo/internal/storage"
	chstore "feedo/internal/storage/clickhouse"
	"feedo/internal/storage/memory"
	"feedo/internal/storage/migrations"
	pgstore "feedo/internal/storage/postgres"
	redisstore "feedo/internal/storage/redis"
)

// botStores holds the storage implementations the orchestrator needs.
type botStores struct {
	markers     storage.ProcessedMarkerStore
	profiles    storage.ProfileStore
	deployments storage.DeploymentStore
	events      storage.DeploymentEventStore
}

func main() {
	// Load .env if present; system env vars win.
	_ = godotenv.Load()

	accessToken := flag.String("access-token", os.Getenv("INSTAGRAM_ACCESS_TOKEN"), "Instagram Graph API access token")
	accountID := flag.String("account-id", os.Getenv("INSTAGRAM_BUSINESS_ACCOUNT_ID"), "Instagram business account ID")
	handle := flag.String("handle", envOr("INSTAGRAM_HANDLE", "feedo3app"), "Account handle commands must mention, without the @")
	apifyToken := flag.String("apify-token", os.Getenv("APIFY_API_TOKEN"), "Apify API token for profile scraping")
	walletKey := flag.String("wallet-key", os.Getenv("PUMPPORTAL_WALLET_PRIVATE_KEY"), "Base58 wallet private key for signing launches")
	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", solana.DefaultEndpoint), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, polling fallback without it)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional analytics sink)")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the profile cache (optional)")
	avatarDir := flag.String("avatar-dir", envOr("AVATAR_DIR", "avatars"), "Directory for downloaded avatars")
	pollInterval := flag.Duration("poll-interval", 60*time.Second, "Feed polling interval")
	devBuy := flag.Float64("dev-buy", deployer.DefaultDevBuySOL, "Dev buy amount in SOL per launch")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags)

	if *accessToken == "" {
		logger.Fatal("--access-token is required")
	}
	if *accountID == "" {
		logger.Fatal("--account-id is required")
	}
	if *apifyToken == "" {
		logger.Fatal("--apify-token is required")
	}
	if *walletKey == "" {
		logger.Fatal("--wallet-key is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	signer, err := solana.KeypairFromBase58(*walletKey)
	if err != nil {
		logger.Fatalf("Invalid wallet key: %v", err)
	}
	logger.Printf("Signing launches as %s", signer.PublicKeyBase58())

	if err := os.MkdirAll(*avatarDir, 0755); err != nil {
		logger.Fatalf("Failed to create avatar directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *redisAddr, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Instagram client serves as both feed source and reply notifier.
	ig := feed.NewClient(*accessToken)

	acquirer := scraper.NewAcquirer(scraper.AcquirerOptions{
		Client:    scraper.NewClient(*apifyToken),
		AvatarDir: *avatarDir,
	})

	rpc := solana.NewHTTPClient(*rpcEndpoint)
	var ws solana.WSClient
	if *wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket connect failed, confirming via polling only: %v", err)
		} else {
			ws = wsClient
			defer wsClient.Close()
		}
	}
	confirmer := solana.NewConfirmer(solana.ConfirmerOptions{RPC: rpc, WS: ws})

	dep := deployer.New(deployer.Options{
		Pump:      deployer.NewPumpClient(deployer.WithDevBuy(*devBuy)),
		RPC:       rpc,
		Confirmer: confirmer,
		Signer:    signer,
	})

	orch := orchestrator.New(orchestrator.Options{
		Feed:         ig,
		Notifier:     ig,
		Acquirer:     acquirer,
		Deployer:     dep,
		Markers:      stores.markers,
		Profiles:     stores.profiles,
		Deployments:  stores.deployments,
		Events:       stores.events,
		AccountID:    *accountID,
		Handle:       *handle,
		PollInterval: *pollInterval,
		DeploymentID: idhash.ComputeDeploymentID,
	})

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	status := newStatusServer(stores.deployments)
	go status.serve(logger, *metricsAddr)

	err = orch.Run(ctx)
	done <- err

	if err != nil && err != context.Canceled {
		logger.Fatalf("Bot error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires the marker, profile, deployment and analytics
// stores. In-memory mode skips every external system; otherwise markers
// and deployments live in PostgreSQL, profiles optionally behind a Redis
// cache, and terminal events stream to ClickHouse when configured.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN, redisAddr string, useMemory bool) (*botStores, func(), error) {
	if useMemory {
		stores := &botStores{
			markers:     memory.NewMarkerStore(),
			profiles:    memory.NewProfileStore(),
			deployments: memory.NewDeploymentStore(),
			events:      memory.NewDeploymentEventStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &botStores{
		markers:     pgstore.NewMarkerStore(pool),
		deployments: pgstore.NewDeploymentStore(pool),
	}
	cleanups := []func(){pool.Close}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var profiles storage.ProfileStore = pgstore.NewProfileStore(pool)
	if redisAddr != "" {
		cache, err := redisstore.NewProfileCache(ctx, redisAddr, profiles)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		cleanups = append(cleanups, func() { cache.Close() })
		profiles = cache
	}
	stores.profiles = profiles

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		stores.events = chstore.NewDeploymentEventStore(conn)
	}

	return stores, cleanup, nil
}

// statusServer serves health, metrics and a JSON status snapshot.
type statusServer struct {
	deployments storage.DeploymentStore
	started     time.Time
}

func newStatusServer(deployments storage.DeploymentStore) *statusServer {
	return &statusServer{deployments: deployments, started: time.Now()}
}

func (s *statusServer) serve(logger *log.Logger, addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Total      int64  `json:"total_deployments"`
	Succeeded  int64  `json:"successful_deployments"`
	Failed     int64  `json:"failed_deployments"`
	Creators   int64  `json:"total_creators"`
	StatsError string `json:"stats_error,omitempty"`
}

func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "running", Uptime: time.Since(s.started).String()}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if stats, err := s.deployments.Stats(ctx); err != nil {
		resp.StatsError = err.Error()
	} else {
		resp.Total = stats.TotalDeployments
		resp.Succeeded = stats.SuccessfulDeployments
		resp.Failed = stats.FailedDeployments
		resp.Creators = stats.TotalCreators
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// envOr returns the env var value or a fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
