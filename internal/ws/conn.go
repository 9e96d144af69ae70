package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/0-FoxHunt-0/Chatty/internal/auth"
	"github.com/0-FoxHunt-0/Chatty/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Client 对应一个存活的双向连接。id 在连接建立时生成，断线即作废，
// 重连不会复用旧 id。conn 只由本连接的读写协程触碰，send 的所有权在 Hub。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	id        string
	userID    uint
	name      string
	readLimit int64

	closed bool // 由 hub.mu 保护
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint, name string, maxImageBytes int64) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		id:   xid.New().String(),
		// 图片走 base64，读上限按膨胀系数放大并给 JSON 信封留余量
		readLimit: maxImageBytes*4/3 + 4<<10,
		userID:    userID,
		name:      name,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve 处理 /ws 握手：先认证再升级，认证失败的连接不会进入 Hub，
// 拒绝原因随 HTTP 响应返回给客户端便于排障。
func Serve(h *Hub, relay *Relay, db *gorm.DB, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.ResolveUser(db, cfg, auth.TokenFromRequest(c.Request))
		if err != nil {
			log.Warn().Err(err).Str("remote", c.Request.RemoteAddr).Msg("ws auth rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newClient(h, conn, user.ID, user.FullName, cfg.MaxImageBytes)
		h.Register(client)

		go client.writePump()
		client.readPump(relay)
	}
}

func (c *Client) readPump(relay *Relay) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(c.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		// 同一连接的事件按到达顺序依次处理，不做重排
		switch in.Type {
		case EvtSendMessage:
			relay.Send(context.Background(), c, in)
		case EvtTypingStart:
			relay.TypingStart(c.userID, in.RecipientID)
		case EvtTypingStop:
			relay.TypingStop(c.userID, in.RecipientID)
		default:
			// 未知事件类型按 no-op 处理
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
