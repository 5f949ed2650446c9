// Command chess-referee pairs websocket clients for timed two-player chess.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the websocket, the read-only REST API and an /mcp endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP server if none is available
//
// Settings come from an optional YAML file (-config), then environment
// variables and flags. Optional ngrok tunneling gives easy external access
// during development.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/chess-referee/api"
	"github.com/wricardo/chess-referee/game/config"
	"github.com/wricardo/chess-referee/game/rules"
	"github.com/wricardo/chess-referee/game/service"
	"github.com/wricardo/chess-referee/transport/mcp"
	"github.com/wricardo/chess-referee/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chess Referee"
)

// Configuration flags. Empty or zero values keep the settings file value.
var (
	port         = flag.Int("port", envInt("PORT"), "HTTP server port (env PORT)")
	host         = flag.String("host", os.Getenv("HOST"), "HTTP server host (env HOST)")
	configFile   = flag.String("config", os.Getenv("CONFIG_FILE"), "YAML settings file (env CONFIG_FILE)")
	viewerName   = flag.String("viewer", os.Getenv("VIEWER_NAME"), "Name of the privileged viewer client (env VIEWER_NAME)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// envInt reads an integer environment variable, returning 0 when unset or invalid.
func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with websocket, REST API and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                         # Serve on 0.0.0.0:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -viewer board # Custom port and viewer name\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config server.yaml      # Load settings from YAML\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp               # Run MCP stdio server\n", os.Args[0])
	}
}

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger := newLogger(os.Stderr, *debug)
	slog.SetDefault(logger)
	if envErr == nil {
		logger.Info("loaded environment variables from .env file")
	} else if !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("error loading .env file", "error", envErr)
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	settings, err := loadSettings()
	if err != nil {
		logger.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode,
		"addr", settings.Addr(), "viewer", settings.ViewerName)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(settings, logger)

	case "server", "http":
		runHTTPServer(settings, logger)

	default:
		logger.Error("unknown mode, use 'server' (default) or 'stdio-mcp'", "mode", mode)
		os.Exit(2)
	}
}

// newLogger builds the process-wide text logger.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads the settings file and applies flag and environment overrides.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(*configFile)
	if err != nil {
		return settings, err
	}
	if *host != "" {
		settings.Host = *host
	}
	if *port != 0 {
		settings.Port = *port
	}
	if *viewerName != "" {
		settings.ViewerName = *viewerName
	}
	return settings, settings.Validate()
}

// app is the wired server: orchestrator, websocket hub and HTTP routes.
type app struct {
	orch    *service.Orchestrator
	hub     *websocket.Hub
	handler http.Handler
}

// newApp wires services. mcpBaseURL is where the /mcp endpoint sends its REST
// calls; empty leaves /mcp unmounted.
func newApp(settings config.Settings, mcpBaseURL string, logger *slog.Logger) *app {
	orch := service.New(service.Options{
		Viewer:                settings.ViewerName,
		DefaultSecondsPerTurn: settings.DefaultSecondsPerTurn,
	}, rules.NewChessFactory(), logger)

	hub := websocket.NewHub(orch, websocket.Options{
		MaxMessageSize: settings.MaxMessageSize,
		SendBuffer:     settings.SendBuffer,
		AllowedOrigins: settings.AllowedOrigins,
	}, logger.With("component", "websocket"))

	apiServer := api.NewServer(orch, hub)
	if mcpBaseURL != "" {
		apiServer.Router().Handle("/mcp", mcp.NewClient(mcpBaseURL))
	}

	return &app{orch: orch, hub: hub, handler: apiServer}
}

// loopbackURL is the address the process can reach its own listener on.
func loopbackURL(settings config.Settings) string {
	h := settings.Host
	if h == "" || h == "0.0.0.0" || h == "::" {
		h = "localhost"
	}
	return "http://" + net.JoinHostPort(h, strconv.Itoa(settings.Port))
}

// runHTTPServer serves the websocket, REST API and /mcp until SIGINT or
// SIGTERM, then stops accepting work, cancels every turn clock and closes
// all connections.
func runHTTPServer(settings config.Settings, logger *slog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(settings, loopbackURL(settings), logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	addr := settings.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr,
			"ws", fmt.Sprintf("ws://%s/ws", addr),
			"api", fmt.Sprintf("http://%s/api", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	if ngrokShouldRun() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, a.handler, logger)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	dropped := a.orch.Shutdown()
	logger.Info("turn clocks cancelled", "sessions", dropped)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}

	stopHub()
	<-hubDone

	wg.Wait()
	logger.Info("server stopped")
}

// ngrokShouldRun checks the -ngrok flag, then NGROK_ENABLED.
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	env := os.Getenv("NGROK_ENABLED")
	return env == "true" || env == "1"
}

// ngrokToken returns the auth token from the flag or either environment spelling.
func ngrokToken() string {
	if *ngrokAuth != "" {
		return *ngrokAuth
	}
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		return token
	}
	return os.Getenv("NGROK_AUTH_TOKEN")
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, handler http.Handler, logger *slog.Logger) {
	authToken := ngrokToken()
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", "domain", domain)
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established", "url", url, "ws", url+"/ws", "api", url+"/api", "mcp", url+"/mcp")

	if err := srv.Serve(tun); err != nil && err != http.ErrServerClosed {
		logger.Warn("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses a referee already listening on the configured address; otherwise it
// starts an internal one on a random loopback port and targets that.
func runStdioMCPWithInternalServer(settings config.Settings, logger *slog.Logger) {
	baseURL := loopbackURL(settings)
	logger.Info("checking for external API server", "url", baseURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("external API server found, using it for MCP", "url", baseURL)
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Error("failed to get available port", "error", err)
			os.Exit(1)
		}
		baseURL = "http://" + listener.Addr().String()

		a := newApp(settings, "", logger)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer a.orch.Shutdown()
		go a.hub.Run(ctx)

		httpServer := &http.Server{Handler: a.handler, ReadHeaderTimeout: 15 * time.Second}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		logger.Info("started internal HTTP server for MCP stdio", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.MCPServer()); err != nil {
		logger.Error("MCP stdio server error", "error", err)
	}
}
