package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/hidden-word-duel/internal/server/handler"
	"github.com/palemoky/hidden-word-duel/internal/server/storage"
)

const apiTimeout = 3 * time.Second

type createPlayerRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type createPlayerResponse struct {
	Player *storage.Player `json:"player"`
	Token  string          `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("写入响应失败")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"redis": "ok"}
	if err := s.redisStore.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["redis"] = err.Error()
	}
	if s.postgres != nil {
		checks["postgres"] = "ok"
		if err := s.postgres.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["postgres"] = err.Error()
		}
	}

	writeJSON(w, status, map[string]any{
		"checks":      checks,
		"online":      s.GetOnlineCount(),
		"rooms":       s.coordinator.RoomCount(),
		"maintenance": s.IsMaintenanceMode(),
	})
}

// handleCreatePlayer 查找或创建玩家档案并签发令牌
func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Username = sanitizeName(req.Username)
	if req.Username == "" {
		req.Username = storage.DefaultUsername(req.ID)
	}

	player := &storage.Player{ID: req.ID, Username: req.Username, CreatedAt: time.Now()}
	if s.postgres != nil {
		ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
		defer cancel()

		var err error
		if player, err = s.postgres.FindOrCreatePlayer(ctx, req.ID, req.Username); err != nil {
			log.Error().Err(err).Str("player", req.ID).Msg("创建玩家失败")
			writeError(w, http.StatusInternalServerError, "failed to create player")
			return
		}
	}

	token, err := s.tokens.Issue(player.ID, player.Username)
	if err != nil {
		log.Error().Err(err).Str("player", player.ID).Msg("签发令牌失败")
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, createPlayerResponse{Player: player, Token: token})
}

// handleGetPlayer 玩家档案
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	if s.postgres == nil {
		writeError(w, http.StatusServiceUnavailable, "player records are disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	player, err := s.postgres.GetPlayer(ctx, mux.Vars(r)["id"])
	switch {
	case errors.Is(err, storage.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "player not found")
	case err != nil:
		log.Error().Err(err).Msg("查询玩家失败")
		writeError(w, http.StatusInternalServerError, "failed to load player")
	default:
		writeJSON(w, http.StatusOK, player)
	}
}

// handlePlayerStats 玩家排行榜统计
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	playerID := mux.Vars(r)["id"]
	stats, err := s.leaderboard.GetPlayerStats(ctx, playerID)
	if err != nil {
		log.Error().Err(err).Str("player", playerID).Msg("查询统计失败")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	var rank int64 = -1
	if stats != nil {
		if rank, err = s.leaderboard.GetPlayerRank(ctx, playerID); err != nil {
			rank = -1
		}
	}
	writeJSON(w, http.StatusOK, handler.StatsPayload(playerID, "", stats, rank))
}

// handleLeaderboard 排行榜，?type=total|daily|weekly&limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	boardType, limit := handler.NormalizeLeaderboardQuery(q.Get("type"), limit)

	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	entries, err := s.leaderboard.GetLeaderboard(ctx, boardType, limit)
	if err != nil {
		log.Error().Err(err).Str("type", boardType).Msg("查询排行榜失败")
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, handler.LeaderboardPayload(boardType, entries))
}

// handleRooms Redis 中仍有快照的房间
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()

	ids, err := s.redisStore.GetAllRoomIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("查询房间失败")
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms":  ids,
		"active": s.coordinator.ActiveCount(),
	})
}
