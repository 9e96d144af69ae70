package ws

import (
	"encoding/json"
	"errors"
	"time"
)

// 实时事件的封闭词表。客户端发来未知类型时按 no-op 处理，不断开连接。
const (
	// server → client
	EvtOnlineUsersList   = "online-users-list"
	EvtUserOnline        = "user-online"
	EvtUserOffline       = "user-offline"
	EvtNewMessage        = "new-message"
	EvtMessageSent       = "message-sent"
	EvtMessageError      = "message-error"
	EvtUserTyping        = "user-typing"
	EvtUserStoppedTyping = "user-stopped-typing"

	// client → server
	EvtSendMessage = "send-message"
	EvtTypingStart = "typing-start"
	EvtTypingStop  = "typing-stop"
)

// 消息投递失败的两类原因，由 Relay 汇报给发送方。
var (
	ErrUploadFailed      = errors.New("failed to upload image")
	ErrPersistenceFailed = errors.New("failed to send message")
	ErrEmptyMessage      = errors.New("message must contain text or image")
)

// Inbound 是客户端上行事件的统一载体。
type Inbound struct {
	Type        string `json:"type"`
	RecipientID uint   `json:"recipient_id"`
	Text        string `json:"text,omitempty"`
	Image       string `json:"image,omitempty"` // base64 或 data URL
}

// MessageDTO 是持久化后对外推送的消息数据，ID 和时间戳以数据库为准。
type MessageDTO struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func onlineUsersEvent(users []uint) []byte {
	if users == nil {
		users = []uint{}
	}
	b, _ := json.Marshal(map[string]interface{}{"type": EvtOnlineUsersList, "users": users})
	return b
}

func presenceEvent(typ string, userID uint) []byte {
	b, _ := json.Marshal(map[string]interface{}{"type": typ, "user_id": userID})
	return b
}

func messageEvent(typ string, m *MessageDTO) []byte {
	b, _ := json.Marshal(map[string]interface{}{"type": typ, "message": m})
	return b
}

func errorEvent(msg string) []byte {
	b, _ := json.Marshal(map[string]interface{}{"type": EvtMessageError, "error": msg})
	return b
}
