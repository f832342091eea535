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
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/handler"
	gonet "github.com/a3zone/server/internal/net"
	"github.com/a3zone/server/internal/persist"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/system"
	"github.com/a3zone/server/internal/world"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath, err := boot.ConfigPath(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := boot.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	boot.PrintBanner("Zone Server", cfg.Server.Name, cfg.Server.Env)

	// 3. Character store
	printStoreSection(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store handler.CharacterStore
	if cfg.Database.DSN != "" {
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		boot.PrintOK("PostgreSQL 連線成功")

		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		boot.PrintOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))
		store = persist.NewCharacterRepo(db)
	} else {
		store = persist.NewMemoryStore()
		boot.PrintOK("使用記憶體儲存 (重啟後資料遺失)")
	}
	fmt.Println()

	// 4. Load static content
	boot.PrintSection("遊戲資料")
	content, err := data.LoadContent(cfg.Content.DataDir)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	boot.PrintStat("世界", content.Worlds.Count())
	boot.PrintStat("技能", content.Skills.Count())
	boot.PrintStat("物品", content.Items.Count())
	boot.PrintStat("配方", content.Recipes.Count())
	boot.PrintStat("任務", content.Quests.Count())
	boot.PrintStat("怪物", len(content.Spawns.Mobs))
	boot.PrintStat("NPC", len(content.Spawns.Npcs))
	fmt.Println()

	// 5. Lua scripting engine
	boot.PrintSection("腳本引擎")
	eng, err := scripting.NewEngine(cfg.Content.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer eng.Close()
	boot.PrintOK("Lua 腳本載入完成")
	fmt.Println()

	// 6. World state and rule systems
	ws := world.NewState(content, cfg.Gameplay.VisibilityRadius, world.ParseRespawnPolicy(cfg.Gameplay.MobRespawn), log)
	defer ws.Close()

	deps := &handler.Deps{
		Config:  cfg,
		Log:     log,
		Content: content,
		World:   ws,
		Systems: system.New(&system.Env{
			Gameplay:  cfg.Gameplay,
			Content:   content,
			World:     ws,
			Scripting: eng,
			Log:       log,
		}),
		Verifier: auth.NewVerifier(cfg.Auth.Secret),
		Limiter:  auth.NewLimiter(cfg.RateLimit.AuthAttemptsPerWindow, cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthBlock),
		Store:    store,
	}

	// 7. Network
	netServer, err := gonet.NewServer(cfg.Network.BindAddress, gonet.NewSessionConfig(cfg.Network, cfg.RateLimit), handler.NewRouter(deps), log)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	go netServer.AcceptLoop()

	var gateway *gonet.WSGateway
	if cfg.Network.WSAddress != "" {
		gateway = gonet.NewWSGateway(cfg.Network.WSAddress, netServer, log)
		go func() {
			if err := gateway.ListenAndServe(); err != nil {
				log.Error("websocket 閘道停止", zap.Error(err))
			}
		}()
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	var autosave <-chan time.Time
	if cfg.Gameplay.AutosaveInterval > 0 {
		ticker := time.NewTicker(cfg.Gameplay.AutosaveInterval)
		defer ticker.Stop()
		autosave = ticker.C
	}

	boot.PrintSection("伺服器就緒")
	boot.PrintReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	if gateway != nil {
		boot.PrintReady(fmt.Sprintf("WebSocket 閘道 %s/ws", cfg.Network.WSAddress))
	}
	if cfg.Gameplay.AutosaveInterval > 0 {
		boot.PrintReady(fmt.Sprintf("自動存檔間隔 %s", cfg.Gameplay.AutosaveInterval))
	}
	fmt.Println()

	for {
		select {
		case <-autosave:
			requestAutosave(ws, log)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if gateway != nil {
				if err := gateway.Shutdown(shutdownCtx); err != nil {
					log.Warn("websocket 閘道關閉逾時", zap.Error(err))
				}
			}
			// Sessions save their characters in OnClose before Shutdown returns.
			if err := netServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("連線關閉逾時", zap.Error(err))
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

// requestAutosave asks every session to save its character on its own worker.
func requestAutosave(ws *world.State, log *zap.Logger) {
	posted, skipped := 0, 0
	ws.ForEachPlayer(func(e *world.PlayerEntry) {
		if e.Peer().Post(world.AutosaveTick{}) {
			posted++
		} else {
			skipped++
		}
	})
	if posted+skipped > 0 {
		log.Debug("自動存檔", zap.Int("posted", posted), zap.Int("skipped", skipped))
	}
}

func printStoreSection(cfg *config.Config) {
	if cfg.Database.DSN != "" {
		boot.PrintSection("資料庫")
		return
	}
	boot.PrintSection("儲存")
}
