// Command votingd starts the voting session server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the REST API, the live WebSocket route, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the settings file, the store driver, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/voting-session/api"
	"github.com/wricardo/voting-session/transport/mcp"
	"github.com/wricardo/voting-session/transport/websocket"
	"github.com/wricardo/voting-session/voting/config"
	"github.com/wricardo/voting-session/voting/service"
	"github.com/wricardo/voting-session/voting/store"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Voting Session Server"
)

// newApp builds the command tree. Flags are shared by every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:           "votingd",
		Usage:          AppName,
		Version:        Version,
		DefaultCommand: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: config.DefaultPort, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config", Usage: "YAML settings file", Sources: cli.EnvVars("VOTING_CONFIG")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.StringFlag{Name: "store", Usage: "Store driver: memory, file, sqlite, postgres, pgx", Sources: cli.EnvVars("STORE_DRIVER")},
			&cli.StringFlag{Name: "dsn", Usage: "Database DSN for sql store drivers", Sources: cli.EnvVars("DATABASE_URL")},
			&cli.StringFlag{Name: "data-dir", Usage: "Directory for the file store driver", Sources: cli.EnvVars("DATA_DIR")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  stdioMCPAction,
			},
		},
	}
}

// main loads .env and runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	log.Printf("Starting %s v%s (mode: server)", AppName, Version)

	svc, st, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeStore(st)

	return runHTTPServer(cfg, svc)
}

func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)

	svc, st, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeStore(st)

	return runStdioMCPWithInternalServer(cfg, svc)
}

// setup configures logging and resolves the configuration: defaults, then the
// settings file, then flags.
func setup(cmd *cli.Command) (*config.Config, error) {
	if cmd.Bool("debug") {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides file values with flags that were set explicitly
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("store") {
		cfg.Store.Driver = cmd.String("store")
	}
	if cmd.IsSet("dsn") {
		cfg.Store.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("data-dir") {
		cfg.Store.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("ngrok") {
		cfg.Server.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Server.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Server.Ngrok.Domain = cmd.String("ngrok-domain")
	}
}

// openStore builds the store selected by cfg.Driver
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil

	case config.DriverFile:
		persistence, err := store.NewFilePersistence(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		memoryStore := store.NewMemoryStoreWithPersistence(persistence)

		// Load persisted sessions on startup
		if err := memoryStore.LoadPersisted(); err != nil {
			log.Printf("Warning: Failed to load persisted sessions: %v", err)
		}
		log.Printf("[STORE] file store dir=%s sessions=%d", cfg.DataDir, memoryStore.Count())
		return memoryStore, nil

	default:
		sqlStore, err := store.OpenSQL(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		log.Printf("[STORE] sql store driver=%s", cfg.Driver)
		return sqlStore, nil
	}
}

// initializeServices wires the store and the voting service.
// It also starts a background cleanup routine for closed sessions.
func initializeServices(ctx context.Context, cfg *config.Config) (service.VotingService, store.Store, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	votingService := service.NewVotingService(st)

	go sessionCleanupRoutine(votingService, cfg.Sessions.CleanupInterval, cfg.Sessions.Retention)

	return votingService, st, nil
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		log.Printf("Store close error: %v", err)
	}
}

// sessionCleanupRoutine periodically deletes sessions that were closed longer
// than retention ago.
func sessionCleanupRoutine(votingService service.VotingService, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		removed, err := votingService.PurgeClosedSessions(context.Background(), retention)
		if err != nil {
			log.Printf("Session cleanup failed: %v", err)
		}
		if removed > 0 {
			log.Printf("Cleaned up %d closed sessions", removed)
		}
	}
}

// newAPIServer creates the API server on a fresh hub using the live settings
func newAPIServer(cfg *config.Config, votingService service.VotingService) (*api.Server, *websocket.Hub) {
	hub := websocket.NewHub()
	apiServer := api.NewServer(votingService, hub, api.Options{
		Live: websocket.Options{
			SendBuffer:     cfg.Live.SendBuffer,
			WriteWait:      cfg.Live.WriteWait,
			PongWait:       cfg.Live.PongWait,
			MaxMessageSize: cfg.Live.MaxMessageSize,
		},
		AllowedOrigins: cfg.Live.AllowedOrigins,
		VerifySessions: cfg.Live.VerifySessions,
		EchoWrites:     cfg.Live.EchoRestWrites,
	})
	return apiServer, hub
}

// mcpHandler serves single MCP JSON-RPC messages over HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newMainRouter mounts the API at the root and the MCP proxy at /mcp
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// localURL is the base URL the MCP proxy uses to reach this process
func localURL(cfg config.ServerConfig) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(cfg.Port)))
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(cfg *config.Config, votingService service.VotingService) error {
	apiServer, hub := newAPIServer(cfg, votingService)
	addr := cfg.Server.Addr()

	mcpClient := mcp.NewClient(localURL(cfg.Server))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Setup graceful shutdown context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws/voting/<access_code>/", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Server.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg.Server.Ngrok, mainRouter)
		}()
	}

	var err error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case err = <-serveErr:
		log.Printf("HTTP server failed: %v", err)
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("HTTP server shutdown error: %v", shutdownErr)
	}

	// Hijacked WebSocket connections are not tracked by Shutdown
	hub.CloseAll()

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Printf("Using custom ngrok domain: %s", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	// http.Serve only returns once the listener is closed
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws/voting/<access_code>/", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// externalServerAvailable reports whether a voting server already answers at baseURL
func externalServerAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cfg *config.Config, votingService service.VotingService) error {
	baseURL := localURL(cfg.Server)
	log.Printf("Checking for external API server at %s...", baseURL)

	if externalServerAvailable(baseURL) {
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		apiServer, hub := newAPIServer(cfg, votingService)
		httpServer := &http.Server{Handler: apiServer}
		defer func() {
			httpServer.Close()
			hub.CloseAll()
		}()

		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = "http://" + internalAddr
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (api: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
