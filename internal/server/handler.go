package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/0-FoxHunt-0/Chatty/internal/auth"
	"github.com/0-FoxHunt-0/Chatty/internal/config"
	"github.com/0-FoxHunt-0/Chatty/internal/service"
	"github.com/0-FoxHunt-0/Chatty/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg     config.Config
	userSvc *service.UserService
	msgSvc  *service.MessageService
	hub     *ws.Hub
}

func NewHandler(cfg config.Config, userSvc *service.UserService, msgSvc *service.MessageService, hub *ws.Hub) *Handler {
	return &Handler{cfg: cfg, userSvc: userSvc, msgSvc: msgSvc, hub: hub}
}

// Signup 处理用户注册请求。
func (h *Handler) Signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.FullName == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters long"})
		return
	}
	if len(req.FullName) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid full name"})
		return
	}
	user, err := h.userSvc.Register(req.Email, req.FullName, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("signup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login 处理用户登录请求，成功时同时写 jwt cookie 供浏览器端使用。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}
	result, err := h.userSvc.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	auth.SetAuthCookie(c, result.AccessToken, h.cfg.AccessTokenTTLMinutes, h.cfg.Env != "dev")
	c.JSON(http.StatusOK, result)
}

// Logout 清除 jwt cookie。
func (h *Handler) Logout(c *gin.Context) {
	auth.ClearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// RefreshToken 处理 token 刷新请求。
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("refresh token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	auth.SetAuthCookie(c, result.AccessToken, h.cfg.AccessTokenTTLMinutes, h.cfg.Env != "dev")
	c.JSON(http.StatusOK, result)
}

// Me 返回当前登录用户。
func (h *Handler) Me(c *gin.Context) {
	user, err := h.userSvc.FindByID(auth.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListContacts 返回侧边栏联系人，附带在线标记。
func (h *Handler) ListContacts(c *gin.Context) {
	contacts, err := h.userSvc.Contacts(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Msg("list contacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	type contactDTO struct {
		service.UserDTO
		Online bool `json:"online"`
	}
	out := make([]contactDTO, 0, len(contacts))
	for _, u := range contacts {
		out = append(out, contactDTO{UserDTO: u, Online: h.hub.Online(u.ID)})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// ListMessages 处理获取与某用户会话历史的请求。
func (h *Handler) ListMessages(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("id"))
	if err != nil || otherID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	limitStr := c.Query("limit")
	if limitStr == "" {
		limitStr = "50"
	}
	limit, _ := strconv.Atoi(limitStr)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var beforeID uint
	if bid := c.Query("before_id"); bid != "" {
		if v, err := strconv.Atoi(bid); err == nil && v > 0 {
			beforeID = uint(v)
		}
	}
	msgs, err := h.msgSvc.ListConversation(auth.GetUserID(c), uint(otherID), limit, beforeID)
	if err != nil {
		log.Error().Err(err).Int("other_id", otherID).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage 是 REST 版发消息入口，只落库不做实时推送（实时走 /ws）。
func (h *Handler) SendMessage(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("id"))
	if err != nil || otherID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Text == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must contain text or image"})
		return
	}
	var image []byte
	if req.Image != "" {
		image, err = decodeBase64Image(req.Image, h.cfg.MaxImageBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
	}
	msg, err := h.msgSvc.SendMessage(c.Request.Context(), auth.GetUserID(c), uint(otherID), req.Text, image)
	if err != nil {
		if service.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Int("other_id", otherID).Msg("send message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// UpdateProfile 更新资料，头像以 base64 随请求体提交。
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || len(req.FullName) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid full name"})
		return
	}
	var avatar []byte
	if req.Avatar != "" {
		var err error
		avatar, err = decodeBase64Image(req.Avatar, h.cfg.MaxImageBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
	}
	user, err := h.userSvc.UpdateProfile(c.Request.Context(), auth.GetUserID(c), req.FullName, req.Bio, avatar)
	if err != nil {
		log.Error().Err(err).Uint("user_id", auth.GetUserID(c)).Msg("update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// decodeBase64Image 解析裸 base64 或 data URL，超出大小上限直接拒绝。
func decodeBase64Image(s string, maxBytes int64) ([]byte, error) {
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
