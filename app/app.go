package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/odl-service/config"
	"github.com/Astemirdum/odl-service/internal/events"
	"github.com/Astemirdum/odl-service/internal/handler"
	"github.com/Astemirdum/odl-service/internal/lsd"
	"github.com/Astemirdum/odl-service/internal/reaper"
	"github.com/Astemirdum/odl-service/internal/repository"
	"github.com/Astemirdum/odl-service/internal/server"
	"github.com/Astemirdum/odl-service/internal/service"
	"github.com/Astemirdum/odl-service/migrations"
	"github.com/Astemirdum/odl-service/pkg/kafka"
	"github.com/Astemirdum/odl-service/pkg/logger"
	"github.com/Astemirdum/odl-service/pkg/postgres"

	"go.uber.org/zap"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "odl")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("kafka.NewProducer", zap.Error(err))
	}
	pub := events.NewPublisher(producer)

	client := lsd.NewClient(log, cfg.StatusClient)
	svc := service.NewService(repo, client, pub, cfg.Circulation, log)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.ImportConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}
	go func() {
		if err := kafka.Consume(runCtx, consumer, handler.NewConsumer(svc.RecomputePoolByUid, log), kafka.LicenseImportTopic); err != nil && runCtx.Err() == nil {
			log.Error("kafka consume", zap.Error(err))
		}
	}()

	rp := reaper.New(repo, svc, pub, cfg.Reaper.Interval, log)
	go rp.Run(runCtx)

	h := handler.New(svc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), time.Second*5)
	defer closeCancel()

	cancel()
	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	if err = consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	if err = producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
