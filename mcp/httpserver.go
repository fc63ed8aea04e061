package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/service"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

func withHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

// HTTPRequestFromContext returns the HTTP request a streamable MCP call arrived on
func HTTPRequestFromContext(ctx context.Context) (*http.Request, bool) {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	return req, ok
}

func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return withHTTPRequest(ctx, r)
}

// HTTPServerConfig wires the public handlers served next to the MCP endpoint.
type HTTPServerConfig struct {
	Endpoint string
	// Site serves every path not claimed by MCP, SSE or metrics.
	Site     http.Handler
	Gatherer prometheus.Gatherer
	SSE      *SSEServerConfig
}

// HTTPServer combines the streamable MCP endpoint, the SSE streams, the site
// and the metrics endpoint on one mux.
type HTTPServer struct {
	mux       *http.ServeMux
	sseServer *SSEServer
}

func NewHTTPServer(logger *zap.Logger, s *server.MCPServer, serviceInstance service.Service, config HTTPServerConfig) *HTTPServer {
	sseServer := NewSSEServer(logger, serviceInstance, config.SSE)
	endpoint := config.Endpoint

	mux := http.NewServeMux()
	mux.Handle(endpoint, server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	))

	mux.HandleFunc("GET "+endpoint+"/sse", sseServer.HandleSSE)
	mux.HandleFunc("GET "+endpoint+"/sse/members", sseServer.HandleMembersSSE)
	mux.HandleFunc("GET "+endpoint+"/sse/member", sseServer.HandleMemberSSE)
	mux.HandleFunc("GET "+endpoint+"/sse/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, map[string]any{
			"connectedClients": len(sseServer.GetConnectedClients()),
			"clients":          sseServer.GetConnectedClients(),
		})
	})
	mux.HandleFunc("GET "+endpoint+"/sse/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, sseServer.GetStats())
	})

	if config.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	if config.Site != nil {
		mux.Handle("/", config.Site)
	}

	return &HTTPServer{
		mux:       mux,
		sseServer: sseServer,
	}
}

// ServeHTTP implements http.Handler
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *HTTPServer) SSEServer() *SSEServer {
	return s.sseServer
}

// Close disconnects the SSE subscribers.
func (s *HTTPServer) Close() {
	s.sseServer.Close()
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
