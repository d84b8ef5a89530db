package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"teambot/internal/platform/config"
	"teambot/internal/platform/logger"
	phttp "teambot/internal/platform/net/http"
	"teambot/internal/platform/net/middleware"

	"teambot/internal/adapters/deployproxy"
	"teambot/internal/adapters/github"
	"teambot/internal/adapters/notion"
	"teambot/internal/adapters/ovh"
	"teambot/internal/adapters/slack"

	"teambot/internal/services/gateway"
	"teambot/internal/services/gateway/dispatch"
	itemssvc "teambot/internal/services/items/service"
	relsvc "teambot/internal/services/releases/service"
	supdom "teambot/internal/services/support/domain"
	supsvc "teambot/internal/services/support/service"
	taskssvc "teambot/internal/services/tasks/service"
)

func main() {
	// service-scoped config for HTTP etc (CORE_GATEWAY_*)
	root := config.New()
	gwCfg := root.Prefix("CORE_GATEWAY_")

	ghCfg := root.Prefix("GITHUB_")
	slCfg := root.Prefix("SLACK_")
	noCfg := root.Prefix("NOTION_")
	ovhCfg := root.Prefix("OVH_")
	dpCfg := root.Prefix("GODP_")

	// bring up logging early
	l := logger.Get()

	board, err := config.LoadBoardConfig(gwCfg.MayString("BOARD_CONFIG", "board.json"))
	if err != nil {
		l.Panic().Err(err).Msg("board config load failed")
	}

	tracker := github.NewClient(github.Options{
		Endpoint:   ghCfg.MayString("GRAPHQL_URL", ""),
		Token:      ghCfg.MustString("TOKEN"),
		MaxRetries: ghCfg.MayInt("MAX_RETRIES", 2),
	}, board)
	chat := slack.NewClient(slack.Options{
		BotToken:  slCfg.MustString("BOT_TOKEN"),
		UserToken: slCfg.MustString("USER_TOKEN"),
	})
	docs := notion.NewClient(notion.Options{
		Token:    noCfg.MustString("TOKEN"),
		ParentID: noCfg.MustString("RELEASES_DB"),
	})
	hosting := ovh.NewClient(ovh.Options{
		AppKey:      ovhCfg.MustString("APP_KEY"),
		AppSecret:   ovhCfg.MustString("APP_SECRET"),
		ConsumerKey: ovhCfg.MustString("CONSUMER_KEY"),
	})
	deployer := deployproxy.NewClient(deployproxy.Options{
		BaseURL: dpCfg.MustString("URL"),
		Token:   dpCfg.MustString("TOKEN"),
	})

	tasks := taskssvc.New(tracker, chat, board)
	items := itemssvc.New(tracker, chat, board)
	releases := relsvc.New(docs, chat, board)
	support := supsvc.New(hosting, chat, supdom.StaticIPs{
		IPv4: board.Support.StaticIPv4,
		IPv6: board.Support.StaticIPv6,
	})

	// root ctx ends on SIGINT/SIGTERM; jobs and the server share it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := dispatch.NewPool(dispatch.Options{
		Workers: gwCfg.MayInt("WORKERS", 4),
		Queue:   gwCfg.MayInt("QUEUE", 64),
	})
	pool.Start(context.Background())

	handlers := gateway.NewHandlers(
		tasks, items, releases, support, deployer, chat, pool,
		board.Fields.StatusFieldID,
		gateway.Secrets{
			Tracker: []byte(ghCfg.MustString("WEBHOOK_SECRET")),
			Chat:    []byte(slCfg.MustString("SIGNING_SECRET")),
		},
	)

	srv := phttp.NewServer(gwCfg)
	r := srv.Router()
	r.Use(
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.Recover,
		middleware.AccessLog,
		middleware.Heartbeat("/healthz"),
	)
	gateway.Mount(r, handlers)

	go func() {
		<-ctx.Done()
		l.Info().Msg("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			l.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}

	// drain queued jobs before exiting
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := pool.Shutdown(drainCtx); err != nil {
		l.Error().Err(err).Msg("dispatch drain failed")
	}
}
