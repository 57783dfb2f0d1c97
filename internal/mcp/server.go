// Package mcp provides an MCP (Model Context Protocol) server over the
// score records of finished scenarios.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/sense/internal/ratelimit"
	"github.com/nvandessel/sense/internal/store"
)

// Server wraps the MCP SDK server and serves stored scores.
type Server struct {
	server       *sdk.Server
	store        store.RecordStore
	ownsStore    bool
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "sense")
	Version string // Server version

	// OutputDir holds the records and the audit log.
	OutputDir string
	Backend   string

	// Store overrides OutputDir/Backend. The server does not close it.
	Store store.RecordStore

	Logger *slog.Logger
}

// NewServer creates a new MCP server with sense tools.
func NewServer(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rs, owns := cfg.Store, false
	if rs == nil {
		var err error
		rs, err = store.Open(cfg.Backend, cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		owns = true
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		store:        rs,
		ownsStore:    owns,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(cfg.OutputDir),
		logger:       logger,
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the audit log and, if the server opened it, the store.
func (s *Server) Close() error {
	var firstErr error
	if err := s.auditLogger.Close(); err != nil {
		firstErr = err
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.ownsStore = false
	}
	return firstErr
}
