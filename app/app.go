package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/lending-service/config"
	"github.com/openshelf/lending-service/internal/handler"
	"github.com/openshelf/lending-service/internal/repository"
	"github.com/openshelf/lending-service/internal/server"
	"github.com/openshelf/lending-service/internal/service"
	"github.com/openshelf/lending-service/migrations"
	"github.com/openshelf/lending-service/pkg/kafka"
	"github.com/openshelf/lending-service/pkg/logger"
	"github.com/openshelf/lending-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "lending")
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

	authSvc := service.NewAuthService(repo, cfg.JWT, log)
	bookSvc := service.NewBookService(repo, log)
	loanSvc := service.NewLoanService(repo, service.NewEnqueuer(producer), log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.StatsConsumerGroup)
	if err != nil {
		log.Fatal("kafka.NewConsumer", zap.Error(err))
	}
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	go kafka.Consume(consumeCtx, consumer, handler.NewConsumer(bookSvc.ApplyLoanEvent, log), log, kafka.LoanEventsTopic)

	h := handler.New(authSvc, bookSvc, loanSvc, cfg.JWT, log)
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

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	stopConsume()
	if err := consumer.Close(); err != nil {
		log.Error("consumer.Close", zap.Error(err))
	}
	if err := producer.Close(); err != nil {
		log.Error("producer.Close", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
