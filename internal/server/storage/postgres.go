package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 对局记录状态
const (
	MatchStatusOngoing   = "ongoing"
	MatchStatusCompleted = "completed"
	MatchStatusAborted   = "aborted"
)

// uniqueViolation PostgreSQL unique_violation 错误码
const uniqueViolation = "23505"

var ErrPlayerNotFound = errors.New("player not found")

// Player 玩家档案
type Player struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	GamesPlayed int       `json:"games_played"`
	GamesWon    int       `json:"games_won"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultUsername 未提供昵称时使用的默认名
func DefaultUsername(playerID string) string {
	short := playerID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Player_" + short
}

// PostgresStore 对局、回合、猜词与玩家档案的持久化
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建连接池
func NewPostgresStore(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Ping 检查连接
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close 关闭连接池
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// --- 玩家 ---

// GetPlayer 按 ID 查询玩家
func (s *PostgresStore) GetPlayer(ctx context.Context, id string) (*Player, error) {
	p := &Player{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, games_played, games_won, created_at FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.GamesPlayed, &p.GamesWon, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}
	return p, nil
}

// FindOrCreatePlayer 查询玩家，不存在时创建
func (s *PostgresStore) FindOrCreatePlayer(ctx context.Context, id, username string) (*Player, error) {
	p, err := s.GetPlayer(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, err
	}

	if username = strings.TrimSpace(username); username == "" {
		username = DefaultUsername(id)
	}

	p = &Player{ID: id, Username: username}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO players (id, username) VALUES ($1, $2) RETURNING created_at`, id, username,
	).Scan(&p.CreatedAt)
	if err != nil {
		// 并发创建时另一方已插入
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return s.GetPlayer(ctx, id)
		}
		return nil, fmt.Errorf("create player %s: %w", id, err)
	}
	return p, nil
}

// IncrementPlayerWinLoss 累加对局数，胜者同时累加胜场
func (s *PostgresStore) IncrementPlayerWinLoss(ctx context.Context, playerID string, won bool) error {
	wonDelta := 0
	if won {
		wonDelta = 1
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE players SET games_played = games_played + 1, games_won = games_won + $2 WHERE id = $1`,
		playerID, wonDelta)
	if err != nil {
		return fmt.Errorf("update player %s stats: %w", playerID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// --- 对局 ---

// CreateMatch 创建对局记录，同时确保双方玩家档案存在
func (s *PostgresStore) CreateMatch(ctx context.Context, matchID, player1ID, player2ID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, id := range []string{player1ID, player2ID} {
			if _, err := tx.Exec(ctx,
				`INSERT INTO players (id, username) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
				id, DefaultUsername(id)); err != nil {
				return fmt.Errorf("upsert player %s: %w", id, err)
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO matches (id, player1_id, player2_id, status) VALUES ($1, $2, $3, $4)`,
			matchID, player1ID, player2ID, MatchStatusOngoing); err != nil {
			return fmt.Errorf("create match %s: %w", matchID, err)
		}
		return nil
	})
}

// UpdateMatchStatus 更新对局状态，结束状态会写入结束时间
func (s *PostgresStore) UpdateMatchStatus(ctx context.Context, matchID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $2,
			ended_at = CASE WHEN $2 = 'ongoing' THEN NULL ELSE now() END
		 WHERE id = $1`,
		matchID, status)
	if err != nil {
		return fmt.Errorf("update match %s: %w", matchID, err)
	}
	return nil
}

// --- 回合 ---

// CreateRound 创建回合记录
func (s *PostgresStore) CreateRound(ctx context.Context, roundID, matchID, word string, revealed []bool, roundNumber int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rounds (id, match_id, word, revealed_tiles, round_number) VALUES ($1, $2, $3, $4, $5)`,
		roundID, matchID, word, revealed, roundNumber)
	if err != nil {
		return fmt.Errorf("create round %s: %w", roundID, err)
	}
	return nil
}

// SetRoundWinner 记录回合胜者
func (s *PostgresStore) SetRoundWinner(ctx context.Context, roundID, playerID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rounds SET winner_id = $2, ended_at = now() WHERE id = $1`, roundID, playerID)
	if err != nil {
		return fmt.Errorf("set round %s winner: %w", roundID, err)
	}
	return nil
}

// EndRound 记录无人猜中（超时）的回合结束时间
func (s *PostgresStore) EndRound(ctx context.Context, roundID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rounds SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`, roundID)
	if err != nil {
		return fmt.Errorf("end round %s: %w", roundID, err)
	}
	return nil
}

// RecordGuess 记录一次猜词
func (s *PostgresStore) RecordGuess(ctx context.Context, roundID, playerID, guess string, correct bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO guesses (round_id, player_id, guess, is_correct) VALUES ($1, $2, $3, $4)`,
		roundID, playerID, guess, correct)
	if err != nil {
		return fmt.Errorf("record guess in round %s: %w", roundID, err)
	}
	return nil
}

// --- 词库 ---

// LoadWords 读取全部词库
func (s *PostgresStore) LoadWords(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT value FROM words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	words, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan words: %w", err)
	}
	return words, nil
}

// SeedWords 批量写入词库，已存在的词跳过，返回新增数量
func (s *PostgresStore) SeedWords(ctx context.Context, words []string) (int, error) {
	batch := &pgx.Batch{}
	for _, w := range words {
		batch.Queue(`INSERT INTO words (value) VALUES ($1) ON CONFLICT (value) DO NOTHING`, strings.ToLower(w))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted := 0
	for range words {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("seed words: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
