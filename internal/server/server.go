package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/config"
	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/game/match"
	"github.com/palemoky/hidden-word-duel/internal/game/wordpool"
	"github.com/palemoky/hidden-word-duel/internal/server/handler"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 来源已在 handleWebSocket 中由 OriginChecker 校验
	CheckOrigin: func(*http.Request) bool { return true },
	// 消息都很小，压缩只会增加 CPU 开销
	EnableCompression: false,
}

// 后台清理间隔
const (
	roomCleanupInterval    = time.Minute
	inviteCleanupInterval  = 10 * time.Second
	limiterCleanupInterval = time.Minute
	limiterIdleTimeout     = 10 * time.Minute
	statsInterval          = 30 * time.Second
)

// Server WebSocket 服务器
type Server struct {
	config      *config.Config
	redis       *redis.Client
	redisStore  *storage.RedisStore
	leaderboard *storage.LeaderboardManager
	postgres    *storage.PostgresStore // 未配置 DSN 时为 nil
	queue       *storage.WriteBehind
	hub         *Hub
	coordinator *duel.Coordinator
	matcher     *match.Matcher
	handler     *handler.Handler
	tokens      *TokenVerifier

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	httpServer   *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer 连接 Redis 与 PostgreSQL，加载词库并创建服务器
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	var pg *storage.PostgresStore
	if cfg.Postgres.DSN != "" {
		if cfg.Postgres.MigrateOnStart {
			if err := storage.Migrate(cfg.Postgres.DSN); err != nil {
				_ = rdb.Close()
				return nil, err
			}
		}
		var err error
		if pg, err = storage.NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
			_ = rdb.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("🗄️ 未配置 postgres.dsn，不记录对局历史")
	}

	words, err := loadWordPool(ctx, cfg, pg)
	if err != nil {
		_ = rdb.Close()
		if pg != nil {
			pg.Close()
		}
		return nil, err
	}

	return newServer(cfg, rdb, pg, words), nil
}

// loadWordPool 优先使用数据库词库，词库不足以完成一场对局时拒绝启动
func loadWordPool(ctx context.Context, cfg *config.Config, pg *storage.PostgresStore) (*wordpool.Pool, error) {
	pool := wordpool.Default(cfg.Game.WordMinLength, cfg.Game.WordMaxLength)
	if pg != nil && cfg.Postgres.LoadWords {
		words, err := pg.LoadWords(ctx)
		if err != nil {
			return nil, err
		}
		pool = wordpool.New(words, cfg.Game.WordMinLength, cfg.Game.WordMaxLength)
	}

	if pool.Size() < cfg.Game.TotalRounds {
		return nil, fmt.Errorf("词库只有 %d 个可用单词，少于每场回合数 %d", pool.Size(), cfg.Game.TotalRounds)
	}
	log.Info().Int("words", pool.Size()).Msg("📚 词库已加载")
	return pool, nil
}

// newServer 组装各组件，pg 可以为 nil
func newServer(cfg *config.Config, rdb *redis.Client, pg *storage.PostgresStore, words duel.WordSource) *Server {
	s := &Server{
		config:      cfg,
		redis:       rdb,
		redisStore:  storage.NewRedisStore(rdb),
		leaderboard: storage.NewLeaderboardManager(rdb),
		postgres:    pg,
		queue:       storage.NewWriteBehind(cfg.Game.QueueSize, 5*time.Second),
		hub:         NewHub(),
		tokens:      NewTokenVerifier(cfg.Auth),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker: NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(
			cfg.Security.MessageLimit.MaxPerSecond,
			cfg.Security.MessageLimit.Burst,
			cfg.Security.MessageLimit.MaxWarnings,
		),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// 未配置 PostgreSQL 时保持接口为 nil，协调器使用空实现
	var recorder duel.Recorder
	if pg != nil {
		recorder = pg
	}

	s.coordinator = duel.New(duel.Deps{
		Settings:     duel.SettingsFromConfig(&cfg.Game),
		Transport:    s.hub,
		Words:        words,
		Recorder:     recorder,
		Snapshots:    s.redisStore,
		Results:      s.leaderboard,
		Queue:        s.queue,
		OnRoomClosed: s.hub.CloseRoom,
	})

	s.matcher = match.NewMatcher(match.MatcherDeps{
		Rooms:     s.hub,
		Games:     s.coordinator,
		Presence:  s.hub,
		InviteTTL: cfg.Game.InviteTTLDuration(),
	})

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		Game:        s.coordinator,
		Lobby:       s.matcher,
		Rooms:       s.hub,
		Leaderboard: s.leaderboard,
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().
		Int("conn_per_second", cfg.Security.RateLimit.MaxPerSecond).
		Int("msg_per_second", cfg.Security.MessageLimit.MaxPerSecond).
		Int("max_connections", cfg.Server.MaxConnections).
		Bool("allow_guest", cfg.Server.AllowGuest).
		Msg("🔒 安全配置")

	return s
}

// Router HTTP 路由
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// 不使用子路由，方法不匹配时返回 405
	r.HandleFunc("/api/players", s.handleCreatePlayer).Methods(http.MethodPost)
	r.HandleFunc("/api/players/{id}", s.handleGetPlayer).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{id}/stats", s.handlePlayerStats).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", s.handleRooms).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Start 启动后台任务并监听，Shutdown 后返回 nil
func (s *Server) Start() error {
	go s.coordinator.RunCleanup(s.ctx, roomCleanupInterval)
	go s.matcher.RunCleanup(s.ctx, inviteCleanupInterval)
	go s.runLimiterCleanup(s.ctx)
	go s.monitorStats(s.ctx)

	log.Info().Str("addr", s.httpServer.Addr).Int("cpus", runtime.NumCPU()).Msg("🚀 服务器启动")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runLimiterCleanup 定期清理空闲 IP 的限流状态
func (s *Server) runLimiterCleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Cleanup(limiterIdleTimeout); n > 0 {
				log.Debug().Int("count", n).Msg("🧹 清理空闲限流记录")
			}
		}
	}
}
