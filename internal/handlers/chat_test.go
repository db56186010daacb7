package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safetalk/safetalk-backend/internal/database"
	"github.com/safetalk/safetalk-backend/internal/models"
	"github.com/safetalk/safetalk-backend/internal/services"
	"github.com/stretchr/testify/assert"
)

func postJSON(t *testing.T, handler gin.HandlerFunc, userID, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", path, bytes.NewBuffer(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userId", userID)

	handler(c)
	return w
}

func TestSendMessage_CreatesConversation(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_send", Username: "alice_send", Email: "a_send@example.com"}
	b := models.User{ID: "b_send", Username: "bob_send", Email: "b_send@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)

	w := postJSON(t, SendMessage, "a_send", "/api/chat/messages", map[string]interface{}{
		"receiverId": "b_send",
		"content":    "hello",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Message      models.Message      `json:"message"`
		Conversation models.Conversation `json:"conversation"`
		Blocked      bool                `json:"blocked"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	assert.Equal(t, "hello", response.Message.Content)
	assert.Equal(t, "sent", response.Message.Status)
	assert.False(t, response.Blocked)

	// Exactly one conversation with both participants
	var convCount, partCount int64
	database.DB.Model(&models.Conversation{}).Count(&convCount)
	database.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", response.Conversation.ID).Count(&partCount)
	assert.Equal(t, int64(1), convCount)
	assert.Equal(t, int64(2), partCount)

	// Conversation updatedAt follows the message time
	var conv models.Conversation
	database.DB.First(&conv, "id = ?", response.Conversation.ID)
	assert.WithinDuration(t, response.Message.CreatedAt, conv.UpdatedAt, time.Second)
}

func TestSendMessage_ReusesConversation(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_reuse", Username: "alice_reuse", Email: "a_reuse@example.com"}
	b := models.User{ID: "b_reuse", Username: "bob_reuse", Email: "b_reuse@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)

	first := postJSON(t, SendMessage, "a_reuse", "/api/chat/messages", map[string]interface{}{
		"receiverId": "b_reuse", "content": "first",
	})
	// Reply from the other side lands in the same thread
	second := postJSON(t, SendMessage, "b_reuse", "/api/chat/messages", map[string]interface{}{
		"receiverId": "a_reuse", "content": "second",
	})

	var r1, r2 struct {
		Conversation models.Conversation `json:"conversation"`
	}
	json.Unmarshal(first.Body.Bytes(), &r1)
	json.Unmarshal(second.Body.Bytes(), &r2)
	assert.Equal(t, r1.Conversation.ID, r2.Conversation.ID)

	messages, err := services.ListMessages(r1.Conversation.ID)
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestSendMessage_EmptyContent(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_empty", Username: "alice_empty", Email: "a_empty@example.com"}
	b := models.User{ID: "b_empty", Username: "bob_empty", Email: "b_empty@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)

	w := postJSON(t, SendMessage, "a_empty", "/api/chat/messages", map[string]interface{}{
		"receiverId": "b_empty", "content": "   ",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing persisted
	var count int64
	database.DB.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_ghost", Username: "alice_ghost", Email: "a_ghost@example.com"}
	database.DB.Create(&a)

	w := postJSON(t, SendMessage, "a_ghost", "/api/chat/messages", map[string]interface{}{
		"receiverId": "nobody", "content": "hello?",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	database.DB.Model(&models.Conversation{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendMessage_BlockedSenderStillStored(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_gate", Username: "alice_gate", Email: "a_gate@example.com"}
	b := models.User{ID: "b_gate", Username: "bob_gate", Email: "b_gate@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)

	// b blocks a, then a sends anyway
	_, _, err := services.RecordBlock("b_gate", "a_gate", "spam", nil)
	assert.NoError(t, err)

	w := postJSON(t, SendMessage, "a_gate", "/api/chat/messages", map[string]interface{}{
		"receiverId": "b_gate", "content": "still here",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Blocked bool `json:"blocked"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.True(t, response.Blocked)

	// History preserved despite the block
	var count int64
	database.DB.Model(&models.Message{}).Where("sender_id = ?", "a_gate").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetConversations_RecencyOrder(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	me := models.User{ID: "me_list", Username: "me_list", Email: "me_list@example.com"}
	u1 := models.User{ID: "u1_list", Username: "user1_list", Email: "u1_list@example.com"} // old message
	u2 := models.User{ID: "u2_list", Username: "user2_list", Email: "u2_list@example.com"} // recent message
	u3 := models.User{ID: "u3_list", Username: "user3_list", Email: "u3_list@example.com"} // no message
	database.DB.Create(&me)
	database.DB.Create(&u1)
	database.DB.Create(&u2)
	database.DB.Create(&u3)

	c1, _ := services.ResolveConversation("me_list", "u1_list")
	c2, _ := services.ResolveConversation("me_list", "u2_list")
	services.ResolveConversation("me_list", "u3_list")

	database.DB.Create(&models.Message{ID: "m1_list", ConversationID: c1.ID, SenderID: "u1_list", Content: "Old", Status: "sent", CreatedAt: time.Now().Add(-2 * time.Hour)})
	database.DB.Model(&models.Conversation{}).Where("id = ?", c1.ID).Update("updated_at", time.Now().Add(-2*time.Hour))
	database.DB.Create(&models.Message{ID: "m2_list", ConversationID: c2.ID, SenderID: "me_list", Content: "Recent", Status: "sent", CreatedAt: time.Now().Add(-time.Minute)})
	database.DB.Model(&models.Conversation{}).Where("id = ?", c2.ID).Update("updated_at", time.Now().Add(-time.Minute))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/api/chat/conversations", nil)
	c.Set("userId", "me_list")

	GetConversations(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []services.ConversationSummary `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	assert.Len(t, response.Data, 3)
	if len(response.Data) == 3 {
		// Recent first, old second, empty conversation last
		assert.Equal(t, "u2_list", response.Data[0].Participant.ID)
		assert.Equal(t, "Recent", response.Data[0].LastMessage)
		assert.Equal(t, "u1_list", response.Data[1].Participant.ID)
		assert.Equal(t, "u3_list", response.Data[2].Participant.ID)
		assert.Equal(t, "No messages yet", response.Data[2].LastMessage)
	}
}

func TestGetMessages_RequiresParticipant(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_priv", Username: "alice_priv", Email: "a_priv@example.com"}
	b := models.User{ID: "b_priv", Username: "bob_priv", Email: "b_priv@example.com"}
	eve := models.User{ID: "eve_priv", Username: "eve_priv", Email: "eve_priv@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)
	database.DB.Create(&eve)

	conv, _ := services.ResolveConversation("a_priv", "b_priv")
	services.AppendMessage(conv.ID, "a_priv", "secret")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/api/chat/messages?conversationId="+conv.ID, nil)
	c.Set("userId", "eve_priv")

	GetMessages(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkRead(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)

	a := models.User{ID: "a_read", Username: "alice_read", Email: "a_read@example.com"}
	b := models.User{ID: "b_read", Username: "bob_read", Email: "b_read@example.com"}
	database.DB.Create(&a)
	database.DB.Create(&b)

	conv, _ := services.ResolveConversation("a_read", "b_read")
	services.AppendMessage(conv.ID, "a_read", "one")
	services.AppendMessage(conv.ID, "a_read", "two")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/api/chat/read/"+conv.ID, nil)
	c.Params = gin.Params{{Key: "conversationId", Value: conv.ID}}
	c.Set("userId", "b_read")

	MarkRead(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var unread int64
	database.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND is_read = ?", conv.ID, false).Count(&unread)
	assert.Equal(t, int64(0), unread)
}

func TestSanitizeMessageContent(t *testing.T) {
	content, err := SanitizeMessageContent("hello <script>alert(1)</script> world")
	assert.NoError(t, err)
	assert.NotContains(t, content, "<script>")

	_, err = SanitizeMessageContent("   ")
	assert.Error(t, err)
}
