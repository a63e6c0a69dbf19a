package main

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phantom-spire/iam/migrate"
	"github.com/phantom-spire/iam/rbac"
	"github.com/phantom-spire/iam/seed"
	"github.com/phantom-spire/iam/server"
	"github.com/phantom-spire/iam/store"
)

func main() {
	cfg := server.GetConfig()

	log := buildLogger(cfg.Env)
	defer log.Sync()

	if err := migrate.RunFromEnv(); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	if err := seed.RunFromEnv(); err != nil {
		log.Fatal("sql seed failed", zap.Error(err))
	}

	sinks := rbac.MultiSink{rbac.NewZapSink(log.Named("audit"))}

	var rbacStore *store.RBACStore
	if dsn := cfg.DatabaseDSN(); dsn != "" && strings.EqualFold(cfg.Database.Driver, "postgres") {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatal("database open failed", zap.Error(err))
		}
		rbacStore = store.NewRBACStore(db)
		sinks = append(sinks, store.NewAuditStore(db, log.Named("audit_store")))
	}

	var buntLog *store.BuntAuditLog
	if cfg.Audit.BuntPath != "" {
		var err error
		buntLog, err = store.NewBuntAuditLog(cfg.Audit.BuntPath, cfg.Audit.TTL, log.Named("audit_bunt"))
		if err != nil {
			log.Fatal("audit log open failed", zap.Error(err))
		}
		defer buntLog.Close()
		sinks = append(sinks, buntLog)
	}

	engine := rbac.NewEngine(sinks)

	if rbacStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		perms, roles, asgs, err := rbacStore.Load(ctx)
		cancel()
		if err != nil {
			log.Fatal("state load failed", zap.Error(err))
		}
		engine.Restore(perms, roles, asgs)
		log.Info("state restored",
			zap.Int("permissions", len(perms)),
			zap.Int("roles", len(roles)),
			zap.Int("assignments", len(asgs)),
		)
	}

	if err := seed.Apply(engine); err != nil {
		log.Fatal("system role seed failed", zap.Error(err))
	}

	s := server.NewServer(engine)
	s.SetLogger(log.Named("server"))
	if rbacStore != nil {
		s.SetStore(rbacStore)
	}
	if buntLog != nil {
		s.SetAuditLog(buntLog)
	}
	if cfg.Valkey.Addr != "" {
		cache, err := store.NewDecisionCache(cfg.Valkey.Addr, cfg.Valkey.Prefix, cfg.Valkey.TTL)
		if err != nil {
			log.Fatal("valkey connect failed", zap.Error(err))
		}
		defer cache.Close()
		s.SetCache(cache)
	}
	secret := cfg.JWTSecret()
	if secret == "" {
		log.Fatal("no JWT secret configured; set IAM_JWT__SECRET")
	}
	s.SetJWTKey([]byte(secret))

	r := server.NewGinEngine(s)
	log.Info("listening", zap.String("addr", cfg.Listen))
	if err := r.Run(cfg.Listen); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(env string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if strings.EqualFold(env, "prod") {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		os.Exit(1)
	}
	return log
}
