package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServerConfig holds the HTTP surface settings
type ServerConfig struct {
	ServiceName      string
	Transport        TransportConfig
	AllowedOrigins   []string
	DefaultPageLimit int
	MaxPageLimit     int
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker func(ctx context.Context) error

// Server exposes the websocket endpoint and the history endpoints
type Server struct {
	hub       *Hub
	router    *Router
	gateway   Gateway
	paginator *ChatPaginator
	verifier  auth.Verifier
	cfg       ServerConfig
	upgrader  websocket.Upgrader

	gatherer prometheus.Gatherer
	checks   map[string]HealthChecker

	conns sync.WaitGroup
}

// NewServer wires the engine components into an HTTP server
func NewServer(hub *Hub, router *Router, gateway Gateway, verifier auth.Verifier, cfg ServerConfig) *Server {
	if cfg.Transport.PingPeriod <= 0 {
		cfg.Transport = DefaultTransportConfig()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "drawisly"
	}
	s := &Server{
		hub:       hub,
		router:    router,
		gateway:   gateway,
		paginator: NewChatPaginator(gateway, cfg.DefaultPageLimit, cfg.MaxPageLimit),
		verifier:  verifier,
		cfg:       cfg,
		checks:    make(map[string]HealthChecker),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetMetricsGatherer exposes gatherer on /metrics
func (s *Server) SetMetricsGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// AddHealthCheck registers a named dependency check reported by /health
func (s *Server) AddHealthCheck(name string, check HealthChecker) {
	s.checks[name] = check
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Handler builds the gin engine
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(otelgin.Middleware(s.cfg.ServiceName))
	r.Use(slogging.LoggerMiddleware())
	r.Use(slogging.Recoverer())

	r.GET("/health", s.HealthCheck)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// Authenticated after the upgrade; failures close with 4001-4003
	r.GET("/ws", s.HandleWebSocket)

	authed := r.Group("/", AuthMiddleware(s.verifier))
	authed.GET("/chat/:roomId", s.GetChatHistory)
	authed.GET("/draw/:roomId", s.GetDrawHistory)
	return r
}

// HandleWebSocket upgrades the request, authenticates it and serves the
// connection until it closes
func (s *Server) HandleWebSocket(c *gin.Context) {
	logger := slogging.GetContextLogger(c)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logger.Warn("Failed to upgrade websocket connection: %v", err)
		return
	}

	tokenStr, err := ExtractToken(c)
	var identity auth.Identity
	if err == nil {
		identity, err = s.verifier.Verify(c.Request.Context(), tokenStr)
	}
	if err != nil {
		code := closeCodeFor(err)
		logger.Warn("Rejecting websocket connection with close code %d: %v", code, err)
		writeClose(conn, code, "authentication failed", s.cfg.Transport.WriteWait)
		_ = conn.Close()
		return
	}

	s.ServeConn(c.Request.Context(), conn, identity)
}

// ServeConn registers an authenticated connection and blocks until it closes
func (s *Server) ServeConn(ctx context.Context, conn *websocket.Conn, identity auth.Identity) {
	s.conns.Add(1)
	defer s.conns.Done()

	handle := newWSHandle(conn, s.cfg.Transport)
	p, err := s.hub.Register(identity, handle)
	if err != nil {
		slogging.Get().Warn("Rejecting connection for user %s: %v", identity.UserID, err)
		writeClose(conn, websocket.ClosePolicyViolation, "duplicate connection", s.cfg.Transport.WriteWait)
		_ = conn.Close()
		return
	}
	handle.connID = p.ConnID
	handle.userID = p.UserID
	slogging.Get().Info("WebSocket connection established - user: %s conn: %s", p.UserID, p.ConnID)

	go handle.writePump(ctx)
	handle.readPump(func(message []byte) {
		s.router.Route(ctx, p, message)
	})

	s.hub.Unregister(p)
	slogging.Get().Info("WebSocket connection closed - user: %s conn: %s", p.UserID, p.ConnID)
}

// Shutdown closes every live connection and waits for their handlers to return
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveRoom accepts either a join code or a room id
func (s *Server) resolveRoom(ctx context.Context, ref string) (*RoomRecord, error) {
	room, err := s.gateway.FindRoomByCode(ctx, ref)
	if err == nil || !errors.Is(err, ErrRoomNotFound) {
		return room, err
	}
	if _, perr := uuid.Parse(ref); perr != nil {
		return nil, err
	}
	return s.gateway.FindRoomByID(ctx, ref)
}

// writeRoomError writes the HTTP response for a failed room lookup
func writeRoomError(c *gin.Context, err error) {
	if errors.Is(err, ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, Error{Error: "not_found", ErrorDescription: "Room not found"})
		return
	}
	slogging.GetContextLogger(c).Error("Room lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, Error{Error: "server_error", ErrorDescription: "Failed to load room"})
}

// GetChatHistory serves GET /chat/:roomId?cursor=&limit=
func (s *Server) GetChatHistory(c *gin.Context) {
	logger := slogging.GetContextLogger(c)

	room, err := s.resolveRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		writeRoomError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			limit = n
		}
	}

	page, err := s.paginator.Page(c.Request.Context(), room.ID, c.Query("cursor"), limit)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, Error{Error: "invalid_cursor", ErrorDescription: "Cursor does not reference a message in this room"})
			return
		}
		logger.Error("Failed to page chats for room %s: %v", room.ID, err)
		c.JSON(http.StatusInternalServerError, Error{Error: "server_error", ErrorDescription: "Failed to load chat history"})
		return
	}
	for i := range page.Chats {
		page.Chats[i].RoomID = room.JoinCode
	}
	c.JSON(http.StatusOK, page)
}

// GetDrawHistory serves GET /draw/:roomId with every element in persisted order
func (s *Server) GetDrawHistory(c *gin.Context) {
	room, err := s.resolveRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		writeRoomError(c, err)
		return
	}

	draws, err := s.gateway.ListDraws(c.Request.Context(), room.ID)
	if err != nil {
		slogging.GetContextLogger(c).Error("Failed to list draws for room %s: %v", room.ID, err)
		c.JSON(http.StatusInternalServerError, Error{Error: "server_error", ErrorDescription: "Failed to load drawing"})
		return
	}
	if draws == nil {
		draws = []wire.DrawElement{}
	}
	c.JSON(http.StatusOK, wire.DrawHistory{Draws: draws})
}

// HealthCheck serves GET /health
func (s *Server) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"stats":        s.hub.Stats(),
		"dependencies": deps,
	})
}
