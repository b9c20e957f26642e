package server

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/game/duel"
	"github.com/palemoky/hidden-word-duel/internal/protocol"
	"github.com/palemoky/hidden-word-duel/internal/protocol/codec"
)

// monitorStats 定期记录服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			log.Info().
				Int("online", s.GetOnlineCount()).
				Int("goroutines", runtime.NumGoroutine()).
				Int("conns", len(s.semaphore)).
				Int("max_conns", s.maxConnections).
				Int("rooms", s.coordinator.RoomCount()).
				Int("playing", s.coordinator.ActiveCount()).
				Int("timers", s.coordinator.Timers().Len()).
				Int("queued", s.matcher.GetQueueLength()).
				Int("pending_writes", s.queue.Len()).
				Float64("mem_mb", float64(m.Alloc)/1024/1024).
				Msg("📊 [监控]")
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接与新对局
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	// 通知大厅用户
	s.BroadcastToLobby(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		"Server is entering maintenance, new matches are disabled"))

	log.Info().Msg("🔧 进入维护模式：停止新连接和对局创建")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 等待进行中的对局结束（最多 timeout），中止剩余对局后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	// 1. 进入维护模式
	s.EnterMaintenanceMode()

	// 2. 等待对局结束
	deadline := time.Now().Add(timeout)
	interval := s.config.Game.ShutdownCheckIntervalDuration()
	for {
		active := s.coordinator.ActiveCount()
		if active == 0 {
			log.Info().Msg("✅ 所有对局已结束")
			break
		}
		left := time.Until(deadline)
		if left <= 0 {
			log.Warn().Int("playing", active).Msg("⚠️ 等待超时，强制中止剩余对局")
			break
		}
		log.Info().Int("playing", active).Dur("left", left).Msg("⏳ 等待对局结束...")
		time.Sleep(min(interval, left))
	}

	// 3. 中止剩余房间（包括尚未开局的）
	if n := s.coordinator.AbortAll(duel.ReasonShutdown); n > 0 {
		log.Info().Int("rooms", n).Msg("🛑 已中止剩余房间")
	}

	// 4. 关闭服务器
	s.Shutdown()
}

// Shutdown 停止监听，关闭所有连接，写完持久化队列后关闭存储，可重复调用
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("HTTP 服务关闭超时")
		}

		// 关闭所有客户端连接
		for _, c := range s.hub.Clients() {
			c.Close()
		}

		if err := s.queue.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Int("pending", s.queue.Len()).Msg("💾 持久化队列未写完")
		}

		_ = s.redis.Close()
		if s.postgres != nil {
			s.postgres.Close()
		}

		log.Info().Msg("👋 服务器已关闭")
	})
}
