package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/equipfind/equipfind/internal/catalog"
	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/logger"
	"github.com/equipfind/equipfind/internal/search"
)

func newTestConn(t *testing.T, checker *search.HealthChecker) *grpc.ClientConn {
	t.Helper()

	m, err := catalog.LoadFixture("../catalog/testdata/building.yaml")
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	engine := search.NewEngine(m, m, logger.Discard(), search.Config{})

	srv := New(Config{Version: "test"}, logger.Discard(), engine, checker)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}
	out := &structpb.Struct{}
	err = conn.Invoke(context.Background(), method, req, out)
	return out, err
}

func TestLocator_Search(t *testing.T) {
	conn := newTestConn(t, nil)

	out, err := invoke(t, conn, MethodSearch, map[string]any{"query": "192.168.1.5"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	var resp search.SearchResponse
	if err := FromStruct(out, &resp); err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 || resp.Results[0].ID != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Query != "192.168.1.5" {
		t.Errorf("Query = %q", resp.Query)
	}
}

func TestLocator_SearchFilters(t *testing.T) {
	conn := newTestConn(t, nil)

	out, err := invoke(t, conn, MethodSearch, map[string]any{
		"query": "scanner",
		"brand": "Canon",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	var resp search.SearchResponse
	if err := FromStruct(out, &resp); err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	for _, r := range resp.Results {
		if r.Brand != "Canon" {
			t.Errorf("result %d has brand %q", r.ID, r.Brand)
		}
	}
}

func TestLocator_Errors(t *testing.T) {
	conn := newTestConn(t, nil)

	tests := []struct {
		name   string
		method string
		in     map[string]any
		want   codes.Code
	}{
		{"unknown search field", MethodSearch, map[string]any{"q": "scanner"}, codes.InvalidArgument},
		{"wrong field type", MethodSearch, map[string]any{"floor_id": "two"}, codes.InvalidArgument},
		{"suggest without query", MethodSuggest, map[string]any{"query": "  "}, codes.InvalidArgument},
		{"suggest limit too large", MethodSuggest, map[string]any{"query": "scan", "limit": 99}, codes.InvalidArgument},
		{"suggest negative limit", MethodSuggest, map[string]any{"query": "scan", "limit": -1}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.method, tt.in)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestLocator_Suggest(t *testing.T) {
	conn := newTestConn(t, nil)

	out, err := invoke(t, conn, MethodSuggest, map[string]any{"query": "etage", "limit": 5})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	var resp search.SuggestResponse
	if err := FromStruct(out, &resp); err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	if len(resp.Suggestions) == 0 || len(resp.Suggestions) > 5 {
		t.Errorf("suggestions = %v", resp.Suggestions)
	}
}

func TestLocator_FiltersAndVersion(t *testing.T) {
	conn := newTestConn(t, nil)

	out, err := invoke(t, conn, MethodFilters, nil)
	if err != nil {
		t.Fatalf("Filters() error = %v", err)
	}
	var opts search.FilterOptions
	if err := FromStruct(out, &opts); err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	if len(opts.Types) == 0 || len(opts.Floors) == 0 {
		t.Errorf("filters = %+v", opts)
	}

	out, err = invoke(t, conn, MethodVersion, nil)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if got := out.GetFields()["version"].GetStringValue(); got != "test" {
		t.Errorf("version = %q, want test", got)
	}
}

func TestHealthService(t *testing.T) {
	tests := []struct {
		name    string
		checker *search.HealthChecker
		want    healthpb.HealthCheckResponse_ServingStatus
	}{
		{"no checker", nil, healthpb.HealthCheckResponse_SERVING},
		{
			"healthy",
			search.NewHealthChecker(search.Check{Name: "db", Critical: true, Probe: func(context.Context) error { return nil }}),
			healthpb.HealthCheckResponse_SERVING,
		},
		{
			"critical failure",
			search.NewHealthChecker(search.Check{Name: "db", Critical: true, Probe: func(context.Context) error { return errors.New("down") }}),
			healthpb.HealthCheckResponse_NOT_SERVING,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newTestConn(t, tt.checker)
			client := healthpb.NewHealthClient(conn)

			resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if resp.GetStatus() != tt.want {
				t.Errorf("status = %v, want %v", resp.GetStatus(), tt.want)
			}
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", apperrors.ValidationError("bad"), codes.InvalidArgument},
		{"catalog", apperrors.CatalogError("db down", nil), codes.Unavailable},
		{"stats", apperrors.StatsError("redis down", nil), codes.Unavailable},
		{"not found", apperrors.NotFoundError("room"), codes.NotFound},
		{"rate limited", apperrors.RateLimitedError(1), codes.ResourceExhausted},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"plain", errors.New("boom"), codes.Internal},
		{"already a status", status.Error(codes.Aborted, "x"), codes.Aborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(toStatus(tt.err)); got != tt.want {
				t.Errorf("toStatus() code = %v, want %v", got, tt.want)
			}
		})
	}
	if toStatus(nil) != nil {
		t.Error("toStatus(nil) should be nil")
	}
}
