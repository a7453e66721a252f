package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultPrefix = "battle:leaderboard"
	defaultTopN   = 100
	recordedTTL   = 7 * 24 * time.Hour
)

// Entry is one ranked player.
type Entry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Wins        int       `json:"wins"`
	Ties        int       `json:"ties"`
	Games       int       `json:"games"`
	Points      int       `json:"points"`
}

// Player is one side of a finished battle.
type Player struct {
	UserID      uuid.UUID
	DisplayName string
	Points      int
}

// Result is a completed battle as the leaderboard sees it.
type Result struct {
	BattleID uuid.UUID
	Players  []Player
	// Winner is uuid.Nil on a tie.
	Winner uuid.UUID
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Service keeps win/loss standings in a Redis sorted set ranked by wins.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

func NewService(client *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Service{
		redis:  client,
		logger: logger.With().Str("component", "leaderboard").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// RecordResult folds a completed battle into the standings. Recording the
// same battle twice is a no-op.
func (s *Service) RecordResult(ctx context.Context, res Result) error {
	first, err := s.redis.SetNX(ctx, s.recordedKey(res.BattleID), 1, recordedTTL).Result()
	if err != nil {
		return fmt.Errorf("mark battle recorded: %w", err)
	}
	if !first {
		s.logger.Debug().Str("battle_id", res.BattleID.String()).Msg("battle already recorded")
		return nil
	}

	pipe := s.redis.TxPipeline()
	for _, p := range res.Players {
		won := p.UserID == res.Winner
		tie := res.Winner == uuid.Nil
		member := p.UserID.String()
		metaKey := s.metaKey(p.UserID)

		pipe.ZIncrBy(ctx, s.boardKey(), float64(boolToInt(won)), member)
		pipe.HIncrBy(ctx, metaKey, "wins", int64(boolToInt(won)))
		pipe.HIncrBy(ctx, metaKey, "ties", int64(boolToInt(tie)))
		pipe.HIncrBy(ctx, metaKey, "games", 1)
		pipe.HIncrBy(ctx, metaKey, "points", int64(p.Points))
		if p.DisplayName != "" {
			pipe.HSet(ctx, metaKey, "display_name", p.DisplayName)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Let a retry record it.
		s.redis.Del(context.WithoutCancel(ctx), s.recordedKey(res.BattleID))
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}

// Top returns up to limit entries ordered by wins.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}
	results, err := s.redis.ZRevRangeWithScores(ctx, s.boardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, _ := z.Member.(string)
		userID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("skipping malformed leaderboard member")
			continue
		}
		entry, err := s.readMeta(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard metadata")
			continue
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) readMeta(ctx context.Context, userID uuid.UUID) (Entry, error) {
	data, err := s.redis.HGetAll(ctx, s.metaKey(userID)).Result()
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		UserID:      userID,
		DisplayName: data["display_name"],
		Wins:        parseInt(data["wins"]),
		Ties:        parseInt(data["ties"]),
		Games:       parseInt(data["games"]),
		Points:      parseInt(data["points"]),
	}, nil
}

func (s *Service) boardKey() string { return s.prefix }

func (s *Service) metaKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:meta:%s", s.prefix, userID)
}

func (s *Service) recordedKey(battleID uuid.UUID) string {
	return fmt.Sprintf("%s:recorded:%s", s.prefix, battleID)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
