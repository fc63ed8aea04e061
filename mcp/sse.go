package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foomo/teamdirectory/service"
	"github.com/foomo/teamdirectory/service/vo"
	"github.com/foomo/teamdirectory/view"
)

// SSEEvent represents an SSE event structure
type SSEEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(event string, data any) SSEEvent {
	return SSEEvent{
		ID:        uuid.NewString(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// SSEClient represents a subscriber of the broadcast stream
type SSEClient struct {
	ID       string
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan struct{}
	LastSeen time.Time
	mu       sync.Mutex
}

// SSEServerConfig holds configuration for the SSE server
type SSEServerConfig struct {
	KeepaliveInterval time.Duration
	BufferSize        int
}

func DefaultSSEServerConfig() *SSEServerConfig {
	return &SSEServerConfig{
		KeepaliveInterval: 30 * time.Second,
		BufferSize:        100,
	}
}

// SSEServer streams listing and profile resolution progress. Every completed
// listing is additionally broadcast to the subscribers of the /sse stream.
type SSEServer struct {
	logger       *zap.Logger
	service      service.Service
	config       *SSEServerConfig
	clients      map[string]*SSEClient
	clientsMutex sync.RWMutex
	broadcast    chan SSEEvent
	done         chan struct{}
	closeOnce    sync.Once
}

func NewSSEServer(logger *zap.Logger, serviceInstance service.Service, config *SSEServerConfig) *SSEServer {
	if config == nil {
		config = DefaultSSEServerConfig()
	}
	s := &SSEServer{
		logger:    logger,
		service:   serviceInstance,
		config:    config,
		clients:   make(map[string]*SSEClient),
		broadcast: make(chan SSEEvent, config.BufferSize),
		done:      make(chan struct{}),
	}
	go s.broadcastLoop()
	return s
}

// Close stops the broadcast loop and disconnects all subscribers.
func (s *SSEServer) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.clientsMutex.Lock()
		defer s.clientsMutex.Unlock()
		for id, client := range s.clients {
			close(client.Done)
			delete(s.clients, id)
		}
	})
}

func (s *SSEServer) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.broadcast:
			s.clientsMutex.RLock()
			var failed []string
			for id, client := range s.clients {
				if err := writeEvent(client, event); err != nil {
					s.logger.Error("failed to send event to client", zap.String("clientID", id), zap.Error(err))
					failed = append(failed, id)
				}
			}
			s.clientsMutex.RUnlock()
			for _, id := range failed {
				s.removeClient(id)
			}
		}
	}
}

func (s *SSEServer) broadcastEvent(event SSEEvent) {
	select {
	case s.broadcast <- event:
	default:
		s.logger.Warn("broadcast channel full, dropping event", zap.String("eventID", event.ID))
	}
}

func (s *SSEServer) addClient(w http.ResponseWriter, flusher http.Flusher) *SSEClient {
	client := &SSEClient{
		ID:       uuid.NewString(),
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan struct{}),
		LastSeen: time.Now(),
	}
	s.clientsMutex.Lock()
	s.clients[client.ID] = client
	s.clientsMutex.Unlock()
	s.logger.Info("SSE client connected", zap.String("clientID", client.ID))
	return client
}

func (s *SSEServer) removeClient(clientID string) {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	if client, exists := s.clients[clientID]; exists {
		close(client.Done)
		delete(s.clients, clientID)
		s.logger.Info("SSE client disconnected", zap.String("clientID", clientID))
	}
}

func writeEvent(client *SSEClient, event SSEEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if _, err := fmt.Fprintf(client.Writer, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Event, eventJSON); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	client.Flusher.Flush()
	client.LastSeen = time.Now()
	return nil
}

// stream prepares w for a single request scoped event stream.
func stream(w http.ResponseWriter) (*SSEClient, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	return &SSEClient{Writer: w, Flusher: flusher, Done: make(chan struct{})}, true
}

// HandleSSE subscribes the client to broadcast listing results
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := s.addClient(w, flusher)
	defer s.removeClient(client.ID)

	if err := writeEvent(client, newEvent("connected", map[string]string{"clientID": client.ID})); err != nil {
		s.logger.Error("failed to send connection event", zap.String("clientID", client.ID), zap.Error(err))
		return
	}

	ticker := time.NewTicker(s.config.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-ticker.C:
			if err := writeEvent(client, newEvent("keepalive", map[string]any{"timestamp": time.Now()})); err != nil {
				return
			}
		}
	}
}

// HandleMembersSSE streams one event per settled manifest entry followed by
// the ordered listing.
func (s *SSEServer) HandleMembersSSE(w http.ResponseWriter, r *http.Request) {
	client, ok := stream(w)
	if !ok {
		return
	}
	ctx := r.Context()

	manifest := s.service.LoadManifest(ctx)
	if err := writeEvent(client, newEvent("listing_start", map[string]any{"manifest": manifest})); err != nil {
		s.logger.Debug("listing stream closed", zap.Error(err))
		return
	}

	listing := view.NewListingView()
	defer listing.Close()
	snapshot := listing.Load(ctx, func(ctx context.Context) []vo.Member {
		return s.service.ResolveAll(ctx, manifest, func(settlement service.Settlement) {
			if err := writeEvent(client, newEvent("member_settled", settlement)); err != nil {
				s.logger.Debug("listing stream closed", zap.Error(err))
			}
		})
	})
	if snapshot.Loading {
		return
	}

	result := newEvent("listing_result", map[string]any{"members": snapshot.Members})
	if err := writeEvent(client, result); err != nil {
		return
	}
	s.broadcastEvent(result)
	_ = writeEvent(client, newEvent("listing_complete", map[string]string{"status": "completed"}))
}

// HandleMemberSSE streams the resolution of a single profile
func (s *SSEServer) HandleMemberSSE(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	client, ok := stream(w)
	if !ok {
		return
	}

	if err := writeEvent(client, newEvent("profile_start", map[string]string{"name": name})); err != nil {
		return
	}

	profileView := view.NewProfileView()
	defer profileView.Close()
	snapshot := profileView.Load(r.Context(), name, s.service.GetProfile)

	var event SSEEvent
	switch snapshot.State {
	case vo.ProfileStateLoading:
		return
	case vo.ProfileStateNotFound:
		event = newEvent("profile_not_found", map[string]any{"profile": snapshot.Profile})
	default:
		event = newEvent("profile_result", map[string]any{"profile": snapshot.Profile})
	}
	if err := writeEvent(client, event); err != nil {
		return
	}
	_ = writeEvent(client, newEvent("profile_complete", map[string]string{"status": "completed"}))
}

// GetConnectedClients returns information about broadcast subscribers
func (s *SSEServer) GetConnectedClients() []map[string]any {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	clients := make([]map[string]any, 0, len(s.clients))
	for _, client := range s.clients {
		client.mu.Lock()
		lastSeen := client.LastSeen
		client.mu.Unlock()
		clients = append(clients, map[string]any{
			"id":        client.ID,
			"lastSeen":  lastSeen,
			"connected": time.Since(lastSeen) < 2*s.config.KeepaliveInterval,
		})
	}
	return clients
}

// GetStats returns server statistics
func (s *SSEServer) GetStats() map[string]any {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()

	return map[string]any{
		"connectedClients": len(s.clients),
		"bufferSize":       len(s.broadcast),
		"serverVersion":    Version,
	}
}
