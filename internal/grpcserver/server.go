// Package grpcserver provides the gRPC server for the equipment locator.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/search"
)

// Config holds the gRPC server configuration.
type Config struct {
	// TCPAddr is the TCP address to listen on (e.g., ":9090").
	TCPAddr string

	// UnixSocketPath is the Unix socket path for local connections.
	// Empty string disables Unix socket listening.
	UnixSocketPath string

	// Version is the server version.
	Version string

	// Commit is the git commit hash.
	Commit string

	// BuildDate is the build date.
	BuildDate string

	// MaxRecvMsgSize is the maximum message size in bytes (default: 4MB).
	MaxRecvMsgSize int

	// MaxSendMsgSize is the maximum message size in bytes (default: 4MB).
	MaxSendMsgSize int

	// HealthInterval is how often the health checker feeds the gRPC health
	// service. Zero disables polling.
	HealthInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TCPAddr:        ":9090",
		Version:        "dev",
		Commit:         "none",
		BuildDate:      "unknown",
		MaxRecvMsgSize: 4 * 1024 * 1024,
		MaxSendMsgSize: 4 * 1024 * 1024,
		HealthInterval: 15 * time.Second,
	}
}

// Server is the gRPC server that implements the Locator service.
type Server struct {
	cfg        Config
	log        *logger.Logger
	grpcServer *grpc.Server
	health     *health.Server

	engine  *search.Engine
	checker *search.HealthChecker

	stopHealth context.CancelFunc
	wg         sync.WaitGroup

	// Listeners
	tcpListener  net.Listener
	unixListener net.Listener
}

// New creates a new gRPC server over engine. checker may be nil, in which
// case the health service reports SERVING while the server runs.
func New(cfg Config, log *logger.Logger, engine *search.Engine, checker *search.HealthChecker) *Server {
	def := DefaultConfig()
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = def.TCPAddr
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.MaxRecvMsgSize <= 0 {
		cfg.MaxRecvMsgSize = def.MaxRecvMsgSize
	}
	if cfg.MaxSendMsgSize <= 0 {
		cfg.MaxSendMsgSize = def.MaxSendMsgSize
	}

	s := &Server{
		cfg:     cfg,
		log:     log.WithComponent("grpc"),
		engine:  engine,
		checker: checker,
		health:  health.NewServer(),
	}

	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  10 * time.Second,
			Timeout:               3 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(s.requestID, s.logCalls),
	)
	RegisterLocatorServer(s.grpcServer, s)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.setServing(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// Start starts the gRPC server on TCP and on the Unix socket if configured.
func (s *Server) Start() error {
	tcpLis, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP %s: %w", s.cfg.TCPAddr, err)
	}
	s.tcpListener = tcpLis
	s.log.Info("gRPC server listening on TCP", "addr", tcpLis.Addr().String())
	s.serveAsync(tcpLis, "TCP")

	if s.cfg.UnixSocketPath != "" && runtime.GOOS != "windows" {
		_ = os.Remove(s.cfg.UnixSocketPath)

		unixLis, err := net.Listen("unix", s.cfg.UnixSocketPath)
		if err != nil {
			s.log.Warn("Failed to listen on Unix socket", "path", s.cfg.UnixSocketPath, "error", err)
		} else {
			s.unixListener = unixLis
			_ = os.Chmod(s.cfg.UnixSocketPath, 0o666)
			s.log.Info("gRPC server listening on Unix socket", "path", s.cfg.UnixSocketPath)
			s.serveAsync(unixLis, "Unix socket")
		}
	}

	s.startHealth()
	return nil
}

// Serve serves on lis until Stop. It is the blocking counterpart of Start.
func (s *Server) Serve(lis net.Listener) error {
	s.startHealth()
	return s.grpcServer.Serve(lis)
}

func (s *Server) serveAsync(lis net.Listener, kind string) {
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			s.log.Error(kind+" server error", "error", err)
		}
	}()
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.log.Info("Stopping gRPC server...")
	if s.stopHealth != nil {
		s.stopHealth()
	}
	s.wg.Wait()
	s.health.Shutdown()
	s.grpcServer.GracefulStop()

	if s.unixListener != nil {
		_ = os.Remove(s.cfg.UnixSocketPath)
	}
}

// startHealth publishes the serving status and, with a checker, keeps it
// current until Stop.
func (s *Server) startHealth() {
	if s.stopHealth != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopHealth = cancel

	if s.checker == nil {
		s.setServing(healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.probe(ctx)
	if s.cfg.HealthInterval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.HealthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()
}

func (s *Server) probe(ctx context.Context) {
	st := s.checker.Check(ctx)
	if st.Status == "unhealthy" {
		s.setServing(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setServing(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) setServing(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// =============================================================================
// Locator Methods
// =============================================================================

// Search runs a search. The request document carries the same fields as the
// HTTP POST body.
func (s *Server) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req search.Request
	if err := FromStruct(in, &req); err != nil {
		return nil, toStatus(apperrors.InvalidRequestError("invalid search request: " + err.Error()))
	}
	var err error
	if req.Query, err = search.CleanQuery(req.Query); err != nil {
		return nil, toStatus(err)
	}

	results, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(search.SearchResponse{
		Query:   req.Query,
		Count:   len(results),
		Results: results,
	})
}

// SuggestRequest is the Suggest request document.
type SuggestRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Suggest returns autocomplete labels.
func (s *Server) Suggest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SuggestRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, toStatus(apperrors.InvalidRequestError("invalid suggest request: " + err.Error()))
	}
	var err error
	if req.Query, err = search.CleanQuery(req.Query); err != nil {
		return nil, toStatus(err)
	}
	if req.Query == "" {
		return nil, toStatus(apperrors.ValidationError("query is required"))
	}
	if req.Limit == 0 {
		req.Limit = s.engine.SuggestLimit()
	}
	if req.Limit < 1 || req.Limit > search.MaxSuggestions {
		return nil, toStatus(apperrors.ValidationError(
			fmt.Sprintf("limit must be between 1 and %d", search.MaxSuggestions)).WithDetail("limit", strconv.Itoa(req.Limit)))
	}

	out, err := s.engine.Suggest(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	if out == nil {
		out = []string{}
	}
	return encode(search.SuggestResponse{Suggestions: out})
}

// Filters returns the values a caller can filter on.
func (s *Server) Filters(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	opts, err := s.engine.Filters(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(opts)
}

// VersionInfo is the Version response document.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Version returns version information.
func (s *Server) Version(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encode(VersionInfo{
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
		BuildDate: s.cfg.BuildDate,
		GoVersion: runtime.Version(),
	})
}

// =============================================================================
// Helpers
// =============================================================================

func encode(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		return nil, toStatus(apperrors.InternalError("encoding response", err))
	}
	return out, nil
}

// requestID carries an incoming x-request-id into the context logger.
func (s *Server) requestID(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 && ids[0] != "" {
			ctx = context.WithValue(ctx, logger.RequestIDKey, ids[0])
		}
	}
	return handler(ctx, req)
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	log := s.log.WithContext(ctx)
	code := status.Code(err)
	if err != nil {
		log.Warn("gRPC call failed", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start), "error", err)
	} else {
		log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}
