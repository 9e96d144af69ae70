package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/0-FoxHunt-0/Chatty/internal/models"
	"github.com/0-FoxHunt-0/Chatty/internal/upload"
	"github.com/0-FoxHunt-0/Chatty/internal/ws"

	"gorm.io/gorm"
)

// MessageService 封装消息相关的业务逻辑，同时实现 ws.MessageSender。
type MessageService struct {
	db       *gorm.DB
	uploader upload.Uploader
}

func NewMessageService(db *gorm.DB, uploader upload.Uploader) *MessageService {
	return &MessageService{db: db, uploader: uploader}
}

func toMessageDTO(m models.Message) ws.MessageDTO {
	return ws.MessageDTO{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		ImageURL:   m.ImageURL,
		CreatedAt:  m.CreatedAt,
	}
}

// SendMessage 上传图片（如有）、落库并返回持久化后的消息。
// 收件人必须存在；图片上传失败时不会产生半截消息。
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID uint, text string, image []byte) (*ws.MessageDTO, error) {
	if text == "" && len(image) == 0 {
		return nil, ErrEmptyMessage
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", receiverID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ws.ErrPersistenceFailed, err)
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	var imageURL string
	if len(image) > 0 {
		url, err := s.uploader.Store(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ws.ErrUploadFailed, err)
		}
		imageURL = url
	}

	msg := models.Message{SenderID: senderID, ReceiverID: receiverID, Text: text, ImageURL: imageURL}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ws.ErrPersistenceFailed, err)
	}
	dto := toMessageDTO(msg)
	return &dto, nil
}

// ListConversation 分页查询两人之间的会话，按 id 升序返回。
func (s *MessageService) ListConversation(userA, userB uint, limit int, beforeID uint) ([]ws.MessageDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userA, userB, userB, userA,
	)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []models.Message
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	out := make([]ws.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	return out, nil
}

// IsNotFound 辅助 handler 区分收件人不存在的情况。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
