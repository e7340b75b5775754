package main

import (
	"context"
	"os/signal"
	"syscall"

	"member-directory-bot/internal/bot"
	"member-directory-bot/internal/common/config"
	"member-directory-bot/internal/common/logger"
	"member-directory-bot/internal/common/throttle"
	authservice "member-directory-bot/internal/features/auth/service"
	directorypg "member-directory-bot/internal/features/directory/repository/postgres"
	dirservice "member-directory-bot/internal/features/directory/service"
	selservice "member-directory-bot/internal/features/selection/service"
	tmplistpg "member-directory-bot/internal/features/tmplist/repository/postgres"
	tmplservice "member-directory-bot/internal/features/tmplist/service"
	"member-directory-bot/internal/platform/postgres"
	"member-directory-bot/internal/platform/redis"
	"member-directory-bot/internal/platform/telegram"
)

func main() {
	cfg := config.Load()
	logger.Init("member-directory-bot", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pg.Close()

	rdb, err := redis.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	tg, err := telegram.NewClient(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create telegram client")
	}

	th := throttle.NewRedis(rdb)

	memberRepo := directorypg.NewMemberRepository(pg.DB())
	listRepo := tmplistpg.NewListRepository(pg.DB())

	directory := dirservice.NewService(memberRepo, th)
	auth := authservice.NewService(tg, tg.BotID())
	selection := selservice.NewService(directory, auth)
	tmplists := tmplservice.NewService(listRepo)

	b := bot.New(tg, directory, auth, selection, tmplists, th, cfg.Telegram.PollTimeout)

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
	logger.Info().Msg("Shutdown complete")
}
