package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/assistant"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment"
	commentrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/comment/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event"
	eventrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/event/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order"
	orderrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/order/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/upload"
	userrepo "github.com/ovaphlow/pitchfork/service-community-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/telemetry"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

const serviceName = "service-community-go"

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	if err := run(sugar); err != nil {
		sugar.Fatalw("service stopped", "err", err)
	}
	sugar.Info("goodbye")
}

func run(sugar *zap.SugaredLogger) error {
	sugar.Infow("starting", "service", serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg, err := telemetry.ConfigFromEnv()
	if err != nil {
		return err
	}
	shutdownTracing, err := telemetry.Setup(ctx, otelCfg, serviceName)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		return err
	}
	if dbCfg.Migrate {
		if err := database.MigrateUp(dbCfg.DSN, sugar); err != nil {
			return err
		}
		sugar.Info("migrations applied")
	}
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		return err
	}
	httpCfg, err := router.ConfigFromEnv()
	if err != nil {
		return err
	}
	uploadCfg, err := upload.ConfigFromEnv()
	if err != nil {
		return err
	}
	uploads, err := upload.NewStore(uploadCfg, sugar.Named("upload"))
	if err != nil {
		return err
	}
	aiCfg, err := assistant.ConfigFromEnv()
	if err != nil {
		return err
	}
	if aiCfg.APIKey == "" {
		sugar.Warn("OPENAI_API_KEY is empty; description drafting will fail")
	}

	profiles := userrepo.NewUserRepo(db)
	comments := comment.NewService(commentrepo.NewCommentRepo(db), profiles, sugar.Named("comment"))
	events := event.NewService(eventrepo.NewEventRepo(db), eventrepo.NewParticipationRepo(db), profiles, sugar.Named("event"))
	orders := order.NewService(orderrepo.NewOrderRepo(db), orderrepo.NewProductRepo(db), sugar.Named("order"))

	handler := router.RegisterRoutes(httpCfg, authCfg, router.Handlers{
		Comments:  comment.NewHandler(comments, sugar.Named("comment")),
		Events:    event.NewHandler(events, uploads, sugar.Named("event")),
		Orders:    order.NewHandler(orders, sugar.Named("order")),
		Assistant: assistant.NewHandler(assistant.NewService(aiCfg, sugar.Named("assistant"))),
		UploadDir: uploads.Dir(),
	}, sugar)

	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("http server listening", "addr", httpCfg.Addr, "prefix", httpCfg.Prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	sugar.Info("shutting down")

	// short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnw("http server shutdown failed", "err", err)
	}
	if err := shutdownTracing(doneCtx); err != nil {
		sugar.Warnw("tracer shutdown failed", "err", err)
	}
	return nil
}
