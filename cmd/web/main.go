package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"testbank/internal/app"
	"testbank/internal/db"
	"testbank/internal/ingest"
	"testbank/internal/notify"
	"testbank/internal/processing"
	"testbank/internal/question"
	"testbank/internal/report"
	"testbank/internal/storage"
	"testbank/internal/tag"
	"testbank/internal/testset"
)

func main() {
	cfg := app.LoadConfig()

	dbConn, err := db.OpenPostgresWithConfig(context.Background(), cfg.DBDSN, db.PostgresConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	store, err := storage.NewFSStore(cfg.StorageDir)
	if err != nil {
		log.Printf("storage error: %v", err)
		os.Exit(1)
	}

	questionSvc := question.NewService(dbConn, store)
	recordSvc := processing.NewService(dbConn)
	testSetSvc := testset.NewService(dbConn)
	tagSvc := tag.NewService(dbConn)
	reportSvc := report.NewService(dbConn)
	extractor := ingest.NewExtractionClient(ingest.ExtractionClientConfig{
		BaseURL: cfg.ExtractionURL,
		APIKey:  cfg.ExtractionAPIKey,
	})

	var notifier ingest.Notifier
	if mailer := notify.NewMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
		To:   cfg.NotifyEmails,
	}); mailer != nil {
		notifier = mailer
	}

	pipeline := ingest.NewPipeline(questionSvc, recordSvc, testSetSvc, notifier)
	consumer, err := ingest.NewConsumer(cfg.AMQPURL, cfg.CallbackQueue, pipeline, recordSvc)
	if err != nil {
		log.Printf("amqp error: %v", err)
		os.Exit(1)
	}
	defer consumer.Close()
	if err := consumer.Start(); err != nil {
		log.Printf("consumer error: %v", err)
		os.Exit(1)
	}

	r := app.NewRouter(cfg, app.Deps{
		DB:        dbConn,
		Questions: questionSvc,
		Records:   recordSvc,
		TestSets:  testSetSvc,
		Tags:      tagSvc,
		Reports:   reportSvc,
		Store:     store,
		Extractor: extractor,
	})

	log.Printf("testbank web listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
