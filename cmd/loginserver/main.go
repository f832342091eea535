package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a3zone/server/internal/auth"
	"github.com/a3zone/server/internal/boot"
	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/login"
	gonet "github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/persist"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath, err := boot.ConfigPath(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := boot.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	boot.PrintBanner("Login Server", cfg.Server.Name, cfg.Server.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var accounts login.AccountStore
	if cfg.Database.DSN != "" {
		boot.PrintSection("資料庫")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if _, err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		boot.PrintOK("PostgreSQL 連線成功")
		accounts = persist.NewAccountRepo(db)
	} else {
		boot.PrintSection("儲存")
		accounts = persist.NewMemoryAccounts()
		boot.PrintOK("使用記憶體帳號 (重啟後資料遺失)")
	}
	fmt.Println()

	svc := login.NewService(
		cfg.Login,
		auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL),
		auth.NewLimiter(cfg.RateLimit.AuthAttemptsPerWindow, cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthBlock),
		accounts,
		log,
	)
	srv, err := gonet.NewServer(cfg.Login.BindAddress, gonet.NewSessionConfig(cfg.Network, cfg.RateLimit), svc, log)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	go srv.AcceptLoop()

	boot.PrintSection("伺服器就緒")
	boot.PrintReady(fmt.Sprintf("登入服務 %s", srv.Addr().String()))
	if cfg.Login.AutoCreateAccounts {
		boot.PrintReady("自動建立帳號已啟用")
	}
	fmt.Println()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("收到關閉信號", zap.String("signal", sig.String()))

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("連線關閉逾時", zap.Error(err))
	}
	log.Info("登入服務已停止")
	return nil
}
