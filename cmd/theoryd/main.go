package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/shrinivas105/chess-theory-trainer/internal/config"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/httpapi"
	"github.com/shrinivas105/chess-theory-trainer/internal/msgcat"
	"github.com/shrinivas105/chess-theory-trainer/internal/obslog"
	"github.com/shrinivas105/chess-theory-trainer/internal/progress"
	"github.com/shrinivas105/chess-theory-trainer/internal/render"
	"github.com/shrinivas105/chess-theory-trainer/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.L().Sync()

	rdb, err := progress.OpenRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}
	defer rdb.Close()

	localStore := progress.NewRedisStore(rdb)

	// The database mirror is optional; without it redis carries everything.
	var repo *progress.Repository
	if cfg.DatabaseURL != "" {
		repo, err = progress.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("progress repo init error: %v", err)
		}
		defer repo.Close()
	}
	store := progress.NewStore(localStore, repo)

	source := explorer.NewClient(cfg.ExplorerBaseURL, cfg.CloudEvalURL)
	mgr := session.NewManager(rdb, source, store, cfg.SessionTTL())

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	api := httpapi.NewServer(mgr, store, httpapi.NewFormatter(cat), render.NewBoardRenderer(), cfg.SnapshotBoards)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	obslog.L().Info("server_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("server_shutdown_error", zap.Error(err))
	}
}
