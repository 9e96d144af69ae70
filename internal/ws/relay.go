package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/0-FoxHunt-0/Chatty/internal/metrics"
	"github.com/rs/zerolog/log"
)

// MessageSender 是消息持久化协作方：上传图片（如有）、落库并返回带权威 ID
// 和时间戳的消息。失败时用 ErrUploadFailed / ErrPersistenceFailed 包装。
type MessageSender interface {
	SendMessage(ctx context.Context, senderID, receiverID uint, text string, image []byte) (*MessageDTO, error)
}

// Relay 负责消息与打字信号的路由。自身不持有任何持久状态，
// 投递目标完全由 Hub 的在线登记决定。
type Relay struct {
	hub           *Hub
	store         MessageSender
	maxImageBytes int64
}

func NewRelay(hub *Hub, store MessageSender, maxImageBytes int64) *Relay {
	return &Relay{hub: hub, store: store, maxImageBytes: maxImageBytes}
}

// Send 处理一次发消息意图：持久化成功后向收件人全部连接推 new-message，
// 向发送者全部连接推 message-sent（带权威 ID，供客户端去重乐观插入）。
// 收件人不在线时只落库不推送。任何失败只回执给发起连接，绝不外溢给收件人。
func (r *Relay) Send(ctx context.Context, c *Client, in Inbound) {
	if in.Text == "" && in.Image == "" {
		r.hub.PushTo(c, errorEvent(ErrEmptyMessage.Error()))
		return
	}

	var image []byte
	if in.Image != "" {
		data, err := decodeImage(in.Image, r.maxImageBytes)
		if err != nil {
			r.hub.PushTo(c, errorEvent(ErrUploadFailed.Error()))
			return
		}
		image = data
	}

	msg, err := r.store.SendMessage(ctx, c.userID, in.RecipientID, in.Text, image)
	if err != nil {
		log.Error().Err(err).Uint("sender_id", c.userID).Uint("recipient_id", in.RecipientID).Msg("send message")
		reason := ErrPersistenceFailed
		if errors.Is(err, ErrUploadFailed) {
			reason = ErrUploadFailed
		}
		r.hub.PushTo(c, errorEvent(reason.Error()))
		return
	}

	metrics.MessagesTotal.Inc()
	r.hub.PushToUser(msg.ReceiverID, messageEvent(EvtNewMessage, msg))
	r.hub.PushToUser(msg.SenderID, messageEvent(EvtMessageSent, msg))
}

// TypingStart 转发打字开始信号。不持久化、不确认，收件人离线时静默丢弃，
// 丢弃的信号不计入指标。
func (r *Relay) TypingStart(senderID, recipientID uint) {
	if r.hub.PushToUser(recipientID, presenceEvent(EvtUserTyping, senderID)) {
		metrics.TypingEventsTotal.Inc()
	}
}

// TypingStop 转发打字停止信号。
func (r *Relay) TypingStop(senderID, recipientID uint) {
	if r.hub.PushToUser(recipientID, presenceEvent(EvtUserStoppedTyping, senderID)) {
		metrics.TypingEventsTotal.Inc()
	}
}

// decodeImage 支持裸 base64 和 data URL 两种形式，解码后超出上限的直接拒绝。
func decodeImage(s string, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, errors.New("malformed data url")
		}
		s = s[idx+1:]
	}
	if int64(len(s)) > maxBytes*4/3+4 {
		return nil, errors.New("image too large")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errors.New("image too large")
	}
	return data, nil
}
