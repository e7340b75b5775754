package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"member-directory-bot/internal/common/config"
	"member-directory-bot/internal/common/logger"
	directoryhttp "member-directory-bot/internal/features/directory/delivery/http"
	directorypg "member-directory-bot/internal/features/directory/repository/postgres"
	dirservice "member-directory-bot/internal/features/directory/service"
	"member-directory-bot/internal/platform/postgres"
)

// noThrottle satisfies the directory service dependency; the read-only API
// never registers activity, so no limiter is needed.
type noThrottle struct{}

func (noThrottle) Allow(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func main() {
	cfg := config.Load()
	logger.Init("member-directory-api", cfg.Debug)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	pg, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pg.Close()

	memberRepo := directorypg.NewMemberRepository(pg.DB())
	directory := dirservice.NewService(memberRepo, noThrottle{})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.Server.Origin},
		AllowMethods: []string{"GET"},
	}))

	directoryhttp.NewHandler(router, directory)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("API listening")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
