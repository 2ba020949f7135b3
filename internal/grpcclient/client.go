// Package grpcclient provides a gRPC client for the equipment locator server.
package grpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/equipfind/equipfind/internal/grpcserver"
	"github.com/equipfind/equipfind/internal/search"
)

// Config holds the client configuration.
type Config struct {
	// ServerAddress is the server address.
	// Supports:
	//   - "localhost:9090" (TCP)
	//   - "unix:///tmp/equipfind.sock" (Unix socket)
	//   - "auto" (try Unix socket first, fall back to TCP)
	ServerAddress string

	// UnixSocketPath is the default Unix socket path for auto-detection.
	UnixSocketPath string

	// TCPAddress is the default TCP address for auto-detection.
	TCPAddress string

	// Timeout bounds the connection and each call without its own deadline.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServerAddress:  "auto",
		UnixSocketPath: "/tmp/equipfind.sock",
		TCPAddress:     "localhost:9090",
		Timeout:        10 * time.Second,
	}
}

// Client is a gRPC client for the Locator service.
type Client struct {
	cfg  Config
	conn *grpc.ClientConn
}

// New creates a new gRPC client. The connection is established lazily on
// the first call.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = def.ServerAddress
	}
	if cfg.TCPAddress == "" {
		cfg.TCPAddress = def.TCPAddress
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	addr := cfg.resolveAddress()
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	if strings.HasPrefix(addr, "unix://") {
		socketPath := strings.TrimPrefix(addr, "unix://")
		timeout := cfg.Timeout
		opts = append(opts, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, "unix", socketPath)
		}))
		addr = "passthrough:///" + socketPath
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{cfg: cfg, conn: conn}, nil
}

// NewFromConn wraps an existing connection. Close closes conn.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{cfg: DefaultConfig(), conn: conn}
}

// Close closes the client connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// resolveAddress resolves the server address based on configuration.
func (cfg *Config) resolveAddress() string {
	if cfg.ServerAddress != "auto" {
		return cfg.ServerAddress
	}

	if runtime.GOOS != "windows" && cfg.UnixSocketPath != "" {
		if _, err := os.Stat(cfg.UnixSocketPath); err == nil {
			return "unix://" + cfg.UnixSocketPath
		}
	}

	return cfg.TCPAddress
}

// =============================================================================
// Locator Methods
// =============================================================================

// Search runs a search on the server.
func (c *Client) Search(ctx context.Context, req search.Request) (*search.SearchResponse, error) {
	var resp search.SearchResponse
	if err := c.call(ctx, grpcserver.MethodSearch, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest returns autocomplete labels. A zero limit uses the server default.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	var resp search.SuggestResponse
	req := grpcserver.SuggestRequest{Query: query, Limit: limit}
	if err := c.call(ctx, grpcserver.MethodSuggest, req, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Filters returns the values a caller can filter on.
func (c *Client) Filters(ctx context.Context) (*search.FilterOptions, error) {
	var opts search.FilterOptions
	if err := c.call(ctx, grpcserver.MethodFilters, struct{}{}, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Version returns the server's version information.
func (c *Client) Version(ctx context.Context) (*grpcserver.VersionInfo, error) {
	var info grpcserver.VersionInfo
	if err := c.call(ctx, grpcserver.MethodVersion, struct{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Health reports whether the server's Locator service is serving.
func (c *Client) Health(ctx context.Context) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// WithRequestID returns a context whose calls carry id as x-request-id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "x-request-id", id)
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	in, err := grpcserver.ToStruct(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return err
	}

	data, err := protojson.Marshal(out)
	if err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
