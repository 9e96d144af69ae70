package main

import (
	"github.com/0-FoxHunt-0/Chatty/internal/config"
	"github.com/0-FoxHunt-0/Chatty/internal/db"
	clog "github.com/0-FoxHunt-0/Chatty/internal/log"
	"github.com/0-FoxHunt-0/Chatty/internal/server"
	"github.com/0-FoxHunt-0/Chatty/internal/upload"
	"github.com/0-FoxHunt-0/Chatty/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	// main 函数负责加载配置、初始化日志、连接数据库并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	uploader, err := upload.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("upload store init")
	}

	hub := ws.NewHub()
	r := server.SetupRouter(cfg, gdb, hub, uploader)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
