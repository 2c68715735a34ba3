package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"relaygate/global"
	"relaygate/logger"
	"relaygate/middleware"
	midsec "relaygate/middleware/security"
	"relaygate/module/stats"
	"relaygate/module/user"
	userstore "relaygate/module/user/store"
	"relaygate/service/auth"
	"relaygate/service/relay"
	"relaygate/service/storage"
	redisstore "relaygate/service/storage/redis"
	"relaygate/service/ws"
	wshandlers "relaygate/service/ws/handlers"
	toolsec "relaygate/tools/security"
)

func main() {
	cfg := global.Load()
	jwtOpts := toolsec.Options{Secret: cfg.JWTSecret, Alg: "HS256", TTL: cfg.TokenTTL}

	tokens := buildTokenStore(cfg)
	users := buildUserStore(cfg)
	rly := buildRelay(cfg)

	mgr := ws.NewConnManager(ws.ManagerConf{GatewayID: cfg.GatewayID, Relay: rly})
	if err := mgr.StartRelay(context.Background()); err != nil {
		logger.Warnf("[boot] relay unavailable, single-instance delivery only: %v", err)
	}

	gate := auth.NewGate(jwtOpts, cfg.ServerSecret, tokens, users)
	disp := ws.NewDispatcher()
	wshandlers.RegisterAll(disp)
	srv := ws.NewServer(cfg.GatewayID, mgr, gate, disp)

	userH := user.NewHandler(jwtOpts, tokens, users)
	statsH := stats.NewHandler(mgr)

	r := gin.New()
	r.Use(gin.Recovery())
	rt := middleware.NewRouter(midsec.Options{JWT: jwtOpts})

	r.GET("/ws", srv.HandleWS)
	r.GET("/ws/:room", srv.HandleWS)
	rt.POST(r, "/login", userH.Login, middleware.RouteOpt{IsAuth: false})
	rt.POST(r, "/logout", userH.Logout, middleware.RouteOpt{IsAuth: true})
	rt.GET(r, "/stats", statsH.Stats, middleware.RouteOpt{IsAuth: true})
	rt.GET(r, "/online/:user_id", statsH.Online, middleware.RouteOpt{IsAuth: true})

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Infof("[boot] shutting down")
		mgr.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	logger.Infof("[boot] gateway %s listening on %s", cfg.GatewayID, cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("[boot] http server: %v", err)
		os.Exit(1)
	}
	logger.Sync()
}

func buildTokenStore(cfg global.AppConfig) auth.TokenLifecycle {
	if cfg.RedisAddr == "" {
		logger.Warnf("[boot] no REDIS_ADDR, tokens kept in memory (dev mode)")
		return auth.NewMemoryTokens()
	}
	err := redisstore.Init(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Errorf("[boot] redis init: %v", err)
		os.Exit(1)
	}
	return storage.NewTokenStore(redisstore.Client())
}

func buildUserStore(cfg global.AppConfig) auth.UserStore {
	if cfg.MongoURI == "" {
		logger.Warnf("[boot] no MONGO_URI, serving seeded in-memory users (dev mode)")
		return auth.NewMemoryUsers(
			auth.User{ID: 1, Username: "alice", IsActive: true, IsSuperuser: true},
			auth.User{ID: 2, Username: "bob", IsActive: true},
		)
	}
	db, err := userstore.Dial(context.Background(), cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Errorf("[boot] mongo init: %v", err)
		os.Exit(1)
	}
	return userstore.NewMongoUsers(db)
}

func buildRelay(cfg global.AppConfig) relay.Relay {
	switch cfg.RelayBackend {
	case "":
		return nil
	case "redis":
		if cfg.RedisAddr == "" {
			logger.Warnf("[boot] RELAY_BACKEND=redis but no REDIS_ADDR, relay disabled")
			return nil
		}
		return relay.NewRedisRelay(redisstore.Client(), cfg.RelayChannel)
	case "nats":
		rly, err := relay.NewNatsRelay(relay.NatsConfig{
			Servers: cfg.NatsServers,
			Name:    cfg.GatewayID,
		}, cfg.RelayChannel)
		if err != nil {
			logger.Warnf("[boot] nats relay unavailable, single-instance delivery only: %v", err)
			return nil
		}
		return rly
	default:
		logger.Warnf("[boot] unknown RELAY_BACKEND %q, relay disabled", cfg.RelayBackend)
		return nil
	}
}
