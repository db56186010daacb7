package handlers

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/pkg/utils"
)

var SocketServer *socketio.Server

// Presence tracking
var (
	onlineUsers   = make(map[string]string) // userId -> socketId
	onlineUsersMu sync.RWMutex
)

// Typing throttle: track last typing emit per user to prevent spam
var (
	lastTypingEmit         = make(map[string]time.Time) // userId -> last emit time
	lastTypingMu           sync.RWMutex
	typingThrottleDuration = 3 * time.Second // Minimum interval between typing events
)

// GetOnlineUsers returns list of online user IDs
func GetOnlineUsers() []string {
	onlineUsersMu.RLock()
	defer onlineUsersMu.RUnlock()

	users := make([]string, 0, len(onlineUsers))
	for userId := range onlineUsers {
		users = append(users, userId)
	}
	return users
}

// IsUserOnline checks if a user is online
func IsUserOnline(userId string) bool {
	onlineUsersMu.RLock()
	defer onlineUsersMu.RUnlock()
	_, exists := onlineUsers[userId]
	return exists
}

// PublishMessage fans a persisted message out to every live session of its
// conversation. Called strictly after the DB commit; messages are published in
// store order, so subscribers see the same per-conversation order as
// ListMessages. Offline subscribers get nothing - a reconnecting client
// refetches history over HTTP.
func PublishMessage(msg *models.Message, receiverID string) {
	if SocketServer == nil {
		return
	}
	data := map[string]interface{}{
		"message": msg,
	}
	// Conversation room for sessions that joined the thread
	SocketServer.BroadcastToRoom("/", msg.ConversationID, "receive_message", data)
	// Personal rooms: recipient plus sender (multi-device sync)
	SocketServer.BroadcastToRoom("/", receiverID, "receive_message", data)
	SocketServer.BroadcastToRoom("/", msg.SenderID, "receive_message", data)
}

// NotifyMessagesRead tells the sender their messages were read
func NotifyMessagesRead(senderID, readerID string) {
	if SocketServer == nil {
		return
	}
	SocketServer.BroadcastToRoom("/", senderID, "message_read", map[string]interface{}{
		"readerId": readerID,
	})
}

// NotifyEscalation pushes a repeat-offender alert to a user's feed in realtime
func NotifyEscalation(userID string, payload map[string]interface{}) {
	if SocketServer == nil {
		return
	}
	SocketServer.BroadcastToRoom("/", userID, "escalation_alert", payload)
}

// BroadcastPresenceUpdate broadcasts user online/offline status to all clients
func BroadcastPresenceUpdate(userId string, isOnline bool) {
	if SocketServer != nil {
		data := map[string]interface{}{
			"userId":   userId,
			"isOnline": isOnline,
		}
		SocketServer.BroadcastToRoom("/", "presence", "presence_update", data)
	}
}

func InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		url := s.URL()

		// Token comes in the handshake query - most reliable for ws
		token := url.Query().Get("token")
		if token == "" {
			token = url.Query().Get("auth_token") // Fallback
		}

		if token == "" {
			log.Println("Socket Connection Rejected: No token provided", s.ID())
			return fmt.Errorf("authentication required")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			log.Println("Socket Connection Rejected: Invalid token", s.ID())
			return fmt.Errorf("invalid token")
		}

		userId := claims.UserID

		// Store userId in socket context for O(1) lookup
		s.SetContext(userId)

		// Track user as online
		onlineUsersMu.Lock()
		onlineUsers[userId] = s.ID()
		onlineUsersMu.Unlock()

		// Personal room for direct pushes
		s.Join(userId)

		// Global presence room
		s.Join("presence")

		BroadcastPresenceUpdate(userId, true)

		// Send current online users list to the connecting user
		s.Emit("online_users", GetOnlineUsers())

		return nil
	})

	server.OnEvent("/", "join_chat", func(s socketio.Conn, conversationId string) {
		s.Join(conversationId)
	})

	server.OnEvent("/", "leave_chat", func(s socketio.Conn, conversationId string) {
		s.Leave(conversationId)
	})

	server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		recipientID, _ := data["recipientId"].(string)
		if recipientID == "" {
			return
		}

		senderID, _ := s.Context().(string)
		if senderID == "" {
			return
		}

		// THROTTLE: Only emit if 3s since last emit for this sender
		lastTypingMu.RLock()
		lastTime, exists := lastTypingEmit[senderID]
		lastTypingMu.RUnlock()

		if exists && time.Since(lastTime) < typingThrottleDuration {
			return
		}

		lastTypingMu.Lock()
		lastTypingEmit[senderID] = time.Now()
		lastTypingMu.Unlock()

		server.BroadcastToRoom("/", recipientID, "user_typing", map[string]interface{}{
			"userId":    senderID,
			"expiresAt": time.Now().Add(4 * time.Second).Unix(), // Auto-expire on client
		})
	})

	server.OnEvent("/", "get_online_users", func(s socketio.Conn, msg string) {
		s.Emit("online_users", GetOnlineUsers())
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		var disconnectedUserId string

		onlineUsersMu.Lock()
		for userId, socketId := range onlineUsers {
			if socketId == s.ID() {
				disconnectedUserId = userId
				delete(onlineUsers, userId)
				break
			}
		}
		onlineUsersMu.Unlock()

		if disconnectedUserId != "" {
			BroadcastPresenceUpdate(disconnectedUserId, false)
		}
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	go server.Serve()
	SocketServer = server
	return server
}

// Gin Handler to wrap Socket.io
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
