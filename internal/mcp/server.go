package mcp

import (
	"log/slog"

	"github.com/rpggio/hitparade/internal/app"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config contains server configuration.
type Config struct {
	App *app.App
	// Resolver authorizes HTTP callers; nil disables auth.
	Resolver      OperatorResolver
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "hitparade",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode is a local operator shell; HTTP mode checks the admin token.
	auth := noAuthMiddleware("local")
	if cfg.TransportMode != "stdio" && cfg.Resolver != nil {
		auth = authMiddleware(cfg.Resolver)
	}
	// One call: the first middleware is outermost, so traffic logs see the operator.
	server.AddReceivingMiddleware(auth, trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.App)

	return server
}
