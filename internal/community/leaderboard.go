// Package community holds the shared social features: the streak leaderboard
// and post search.
package community

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quitflow/internal/common/logger"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Streak int    `json:"streak"`
}

// Leaderboard ranks users by current smoke-free streak in a Redis sorted set.
// Display names live in a companion hash keyed by user id.
type Leaderboard struct {
	rdb *redis.Client
	key string
	log logger.Logger
}

func NewLeaderboard(rdb *redis.Client, key string, log logger.Logger) *Leaderboard {
	return &Leaderboard{
		rdb: rdb,
		key: key,
		log: log.WithFields(map[string]interface{}{"component": "leaderboard"}),
	}
}

func (l *Leaderboard) namesKey() string { return l.key + ":names" }

// UpdateScore records the user's current streak. Called after each check-in.
func (l *Leaderboard) UpdateScore(ctx context.Context, userID, name string, streak int) error {
	pipe := l.rdb.TxPipeline()
	pipe.ZAdd(ctx, l.key, redis.Z{Score: float64(streak), Member: userID})
	pipe.HSet(ctx, l.namesKey(), userID, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard: update %s: %w", userID, err)
	}
	return nil
}

// Remove drops the user from the board.
func (l *Leaderboard) Remove(ctx context.Context, userID string) error {
	pipe := l.rdb.TxPipeline()
	pipe.ZRem(ctx, l.key, userID)
	pipe.HDel(ctx, l.namesKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard: remove %s: %w", userID, err)
	}
	return nil
}

// Top returns the best n entries, longest streak first.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]Entry, error) {
	members, err := l.rdb.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: top: %w", err)
	}
	if len(members) == 0 {
		return []Entry{}, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member.(string)
	}
	names, err := l.rdb.HMGet(ctx, l.namesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: names: %w", err)
	}

	entries := make([]Entry, len(members))
	for i, m := range members {
		name := ""
		if i < len(names) {
			if s, ok := names[i].(string); ok {
				name = s
			}
		}
		entries[i] = Entry{
			Rank:   i + 1,
			UserID: ids[i],
			Name:   name,
			Streak: int(m.Score),
		}
	}
	return entries, nil
}

// Rank returns the user's 1-based position, or 0 when not on the board.
func (l *Leaderboard) Rank(ctx context.Context, userID string) (int, error) {
	rank, err := l.rdb.ZRevRank(ctx, l.key, userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard: rank %s: %w", userID, err)
	}
	return int(rank) + 1, nil
}
