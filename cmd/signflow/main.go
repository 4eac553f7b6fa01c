package main

import (
	"context"
	"log"

	"signflow/internal/config"
	"signflow/internal/infra/analytics"
	"signflow/internal/infra/blob"
	"signflow/internal/infra/db"
	"signflow/internal/infra/email"
	httpinfra "signflow/internal/infra/http"
	"signflow/internal/usecase"
	"signflow/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	store, err := db.NewStore(cfg.PostgresDSN)
	if err != nil {
		zapLogger.Fatal("failed to init store", zap.Error(err))
	}

	blobs, err := buildBlobStore(cfg)
	if err != nil {
		zapLogger.Fatal("failed to init blob store", zap.Error(err))
	}

	var sender usecase.EmailSender
	if cfg.SMTPAddr != "" {
		smtpSender, err := email.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			zapLogger.Fatal("failed to init smtp sender", zap.Error(err))
		}
		sender = smtpSender
	} else {
		sender = email.NewLogSender(zapLogger)
	}

	var sink usecase.AnalyticsSink
	if cfg.AnalyticsURL != "" {
		webhook, err := analytics.NewWebhookSink(cfg.AnalyticsURL, cfg.AnalyticsToken)
		if err != nil {
			zapLogger.Fatal("failed to init analytics sink", zap.Error(err))
		}
		sink = webhook
	}

	if cfg.CertificateSecret == "" {
		zapLogger.Fatal("CERTIFICATE_SECRET is required")
	}

	recorder := usecase.NewAuditRecorder(store.AuditLog, sink, zapLogger)
	audience := usecase.NewStaticAudience(cfg.CompletionAudience)

	deps := httpinfra.ServerDeps{
		Documents:   usecase.NewDocumentService(store.Documents, recorder, sender, blobs, audience, cfg.SigningBaseURL, zapLogger),
		Signing:     usecase.NewSigningService(store.Documents, recorder, blobs, sender, audience, cfg.EnforceSigningOrder, zapLogger),
		Corrections: usecase.NewCorrectionService(store.Documents, recorder, zapLogger),
		Certs:       usecase.NewCertificateService(store.Documents, []byte(cfg.CertificateSecret)),
		Verifier:    usecase.NewChecksumVerifier(store.Documents, blobs, zapLogger),
		Activity:    usecase.NewActivityQuery(store.Documents, store.AuditLog),
		Log:         zapLogger,
	}

	srv := httpinfra.NewServer(cfg, store, deps)
	zapLogger.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Run(); err != nil {
		zapLogger.Fatal("server exited", zap.Error(err))
	}
}

func buildBlobStore(cfg config.Config) (usecase.BlobStore, error) {
	if cfg.StorageBackend == "s3" {
		return blob.NewS3Store(context.Background(), cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
	}
	return blob.NewLocalStore(cfg.LocalStorePath)
}
