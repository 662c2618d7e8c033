package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/handler"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
	"gitlab.com/videotom/transcode-worker/pkg/rabbitmq"
	"gitlab.com/videotom/transcode-worker/pkg/service"
	"gitlab.com/videotom/transcode-worker/tools/ffmpeg"
	"gitlab.com/videotom/transcode-worker/tools/prober"
	"gitlab.com/videotom/transcode-worker/tools/storage"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, "transcode_worker")
	defer logger.Cleanup(log)

	workspace := storage.NewWorkspace(&cfg, log)
	if err := workspace.EnsureWorkspace(); err != nil {
		log.Error("Error while preparing the workspace", logger.Error(err))
		return
	}

	store, err := storage.NewObjectStore(&cfg, log)
	if err != nil {
		log.Error("Error while creating object store client", logger.Error(err))
		return
	}

	rbMQ, err := rabbitmq.New(&cfg, log)
	if err != nil {
		log.Error("Error while creating rabbitMq object...", logger.Error(err))
		return
	}
	defer rbMQ.Close()

	transcodeService := service.NewTranscode(service.Options{
		Config:       &cfg,
		Log:          log,
		Prober:       prober.New(&cfg, log),
		Engine:       ffmpeg.New(&cfg, log),
		AssetManager: storage.NewAssetManager(&cfg, log, store),
		Workspace:    workspace,
	})

	handlerObj := handler.NewHandler(handler.Options{
		Config:   &cfg,
		Log:      log,
		RabbitMQ: rbMQ,
		Service:  transcodeService,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("transcode worker started", logger.String("queue", cfg.ListenQueue))

	if err := handlerObj.ListenNotifications(ctx); err != nil {
		log.Error("Error while listening for notifications", logger.Error(err))
	}
}
