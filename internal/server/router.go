package server

import (
	"net/http"
	"time"

	"github.com/0-FoxHunt-0/Chatty/internal/auth"
	"github.com/0-FoxHunt-0/Chatty/internal/config"
	"github.com/0-FoxHunt-0/Chatty/internal/metrics"
	"github.com/0-FoxHunt-0/Chatty/internal/mw"
	"github.com/0-FoxHunt-0/Chatty/internal/service"
	"github.com/0-FoxHunt-0/Chatty/internal/upload"
	"github.com/0-FoxHunt-0/Chatty/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, db *gorm.DB, hub *ws.Hub, uploader upload.Uploader) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.CORS(cfg.Env))
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	userSvc := service.NewUserService(db, cfg, uploader)
	msgSvc := service.NewMessageService(db, uploader)
	relay := ws.NewRelay(hub, msgSvc, cfg.MaxImageBytes)
	h := NewHandler(cfg, userSvc, msgSvc, hub)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static(cfg.UploadBaseURL, cfg.UploadDir)

	api := r.Group("/api/v1")

	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/refresh", h.RefreshToken)

	// 需要认证的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, db))
	authed.GET("/auth/me", h.Me)
	authed.GET("/users", h.ListContacts)
	authed.GET("/users/:id/messages", h.ListMessages)
	authed.POST("/users/:id/messages", h.SendMessage)
	authed.PUT("/profile", h.UpdateProfile)

	// WebSocket 端点自带握手认证，不走中间件。
	r.GET("/ws", ws.Serve(hub, relay, db, cfg))

	return r
}
