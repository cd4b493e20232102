package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// TokenVerifier authenticates a bearer token and yields the user id.
type TokenVerifier interface {
	Verify(token string) (int, error)
}

// MembershipChecker authorizes room subscriptions. Join requests are
// client hints; this is the source of truth.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
}

// Gateway upgrades authenticated clients to websocket connections and
// keeps the presence registry in sync with connection lifetimes.
type Gateway struct {
	hub      *Hub
	registry presenceRegistry
	verifier TokenVerifier
	members  MembershipChecker
	logger   *zap.SugaredLogger
}

type presenceRegistry interface {
	Register(userID int, connID string)
	Unregister(userID int, connID string) bool
	OnlineUsers() []int
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, registry presenceRegistry, verifier TokenVerifier, members MembershipChecker, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{hub: hub, registry: registry, verifier: verifier, members: members, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle is the GET /ws endpoint. An unauthenticated handshake is refused
// before the connection enters the registry.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
	}
	userID, err := g.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	conn := NewConn(sock, info)

	g.hub.AddConnection(conn)
	g.registry.Register(userID, info.ConnID)
	g.broadcastOnlineUsers()

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.publishLifecycle(info, "ws_connect", "")
	g.logger.Infow("websocket connected", "conn_id", info.ConnID, "user_id", userID, "ip", info.IP)

	go conn.writePump(g.logger)
	go g.readPump(conn)
}

// readPump consumes client frames until the connection dies, then runs the
// disconnect sequence. A transport drop without a close frame surfaces here
// as a read error once the read deadline expires, so the registry converges
// without its own timeout logic.
func (g *Gateway) readPump(conn *Conn) {
	info := conn.Info()
	var closeReason string
	defer func() {
		g.hub.RemoveConnection(conn)
		conn.Close()
		if g.registry.Unregister(info.UserID, info.ConnID) {
			g.broadcastOnlineUsers()
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		g.publishLifecycle(info, "ws_disconnect", closeReason)
		g.logger.Infow("websocket disconnected", "conn_id", info.ConnID, "user_id", info.UserID, "reason", closeReason)
	}()

	_ = conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	conn.sock.SetPongHandler(func(string) error {
		return conn.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.sock.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}

		var event models.SocketEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			g.logger.Debugw("malformed socket frame", "conn_id", info.ConnID, "error", err)
			continue
		}
		g.handleClientEvent(conn, event)
	}
}

func (g *Gateway) handleClientEvent(conn *Conn, event models.SocketEvent) {
	switch event.Event {
	case models.EventJoinGroup:
		var payload models.JoinGroupPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil || payload.GroupID == 0 {
			return
		}
		if !g.isMember(payload.GroupID, conn.Info().UserID) {
			g.logger.Debugw("join refused", "conn_id", conn.ID(), "group_id", payload.GroupID)
			return
		}
		g.hub.Join(conn, payload.GroupID)
		observability.IncWSEvent(models.EventJoinGroup)
	case models.EventLeaveGroup:
		var payload models.JoinGroupPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil || payload.GroupID == 0 {
			return
		}
		g.hub.Leave(conn, payload.GroupID)
		observability.IncWSEvent(models.EventLeaveGroup)
	case models.EventJoinUserGroups:
		var payload models.JoinUserGroupsPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		userID := conn.Info().UserID
		allowed := payload.GroupIDs[:0:0]
		for _, groupID := range payload.GroupIDs {
			if g.isMember(groupID, userID) {
				allowed = append(allowed, groupID)
			}
		}
		g.hub.BulkJoin(conn, allowed)
		observability.IncWSEvent(models.EventJoinUserGroups)
	default:
		g.logger.Debugw("unknown socket event", "conn_id", conn.ID(), "event", event.Event)
	}
}

func (g *Gateway) isMember(groupID, userID int) bool {
	if g.members == nil {
		return false
	}
	member, err := g.members.IsMember(context.Background(), groupID, userID)
	if err != nil {
		g.logger.Warnw("membership check failed", "group_id", groupID, "user_id", userID, "error", err)
		return false
	}
	return member
}

func (g *Gateway) broadcastOnlineUsers() {
	event, err := models.NewSocketEvent(models.EventOnlineUsers, g.registry.OnlineUsers())
	if err != nil {
		return
	}
	g.hub.BroadcastAll(event)
}

func (g *Gateway) publishLifecycle(info ConnInfo, name, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       name,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload:   payload,
	}, headers)
}
