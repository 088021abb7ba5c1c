package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pool-ladder/internal/config"
	"github.com/pool-ladder/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StandingsMirror publishes bracket standings to Redis so reads never touch
// the database. Each bracket is a sorted set keyed by position, with a
// per-player info hash alongside.
type StandingsMirror struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStandingsMirror creates a new Redis standings mirror
func NewStandingsMirror(cfg *config.RedisConfig, logger *slog.Logger) (*StandingsMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &StandingsMirror{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *StandingsMirror) Close() error {
	return s.client.Close()
}

// standingsKey returns the Redis key for a bracket's sorted set
func (s *StandingsMirror) standingsKey(bracket domain.Bracket) string {
	return fmt.Sprintf("ladder:%s:standings", bracket)
}

// playerInfoKey returns the Redis key for a player's info hash
func (s *StandingsMirror) playerInfoKey(playerID string) string {
	return fmt.Sprintf("player:%s:info", playerID)
}

// ReplaceBracket rewrites a bracket's standings atomically via pipeline.
// The score of each sorted-set member is the player's position, so an
// ascending range walk returns the ladder top-down.
func (s *StandingsMirror) ReplaceBracket(ctx context.Context, bracket domain.Bracket, players []domain.Player) error {
	key := s.standingsKey(bracket)

	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	for i := range players {
		p := &players[i]
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(p.Position),
			Member: p.ID,
		})
		pipe.HSet(ctx, s.playerInfoKey(p.ID),
			"name", p.Name(),
			"ladder_name", string(p.Bracket),
			"position", p.Position,
			"wins", p.Wins,
			"losses", p.Losses,
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing bracket standings: %w", err)
	}
	return nil
}

// GetStandings returns a bracket's standings top-down
func (s *StandingsMirror) GetStandings(ctx context.Context, bracket domain.Bracket) ([]domain.StandingEntry, error) {
	key := s.standingsKey(bracket)
	results, err := s.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting standings: %w", err)
	}

	entries := make([]domain.StandingEntry, 0, len(results))
	for _, result := range results {
		playerID := result.Member.(string)
		entry := domain.StandingEntry{
			Position: int(result.Score),
			PlayerID: playerID,
		}
		info, err := s.client.HGetAll(ctx, s.playerInfoKey(playerID)).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("getting player info: %w", err)
		}
		entry.Name = info["name"]
		entry.Wins, _ = strconv.Atoi(info["wins"])
		entry.Losses, _ = strconv.Atoi(info["losses"])
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetPlayerStanding returns a single player's mirrored position
func (s *StandingsMirror) GetPlayerStanding(ctx context.Context, bracket domain.Bracket, playerID string) (*domain.StandingEntry, error) {
	key := s.standingsKey(bracket)
	score, err := s.client.ZScore(ctx, key, playerID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player standing: %w", err)
	}

	entry := &domain.StandingEntry{
		Position: int(score),
		PlayerID: playerID,
	}
	info, err := s.client.HGetAll(ctx, s.playerInfoKey(playerID)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("getting player info: %w", err)
	}
	entry.Name = info["name"]
	entry.Wins, _ = strconv.Atoi(info["wins"])
	entry.Losses, _ = strconv.Atoi(info["losses"])
	return entry, nil
}

// RemovePlayer drops a player from the mirror
func (s *StandingsMirror) RemovePlayer(ctx context.Context, bracket domain.Bracket, playerID string) error {
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, s.standingsKey(bracket), playerID)
	pipe.Del(ctx, s.playerInfoKey(playerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing player from standings: %w", err)
	}
	return nil
}

// GetCount returns the number of mirrored players in a bracket
func (s *StandingsMirror) GetCount(ctx context.Context, bracket domain.Bracket) (int64, error) {
	count, err := s.client.ZCard(ctx, s.standingsKey(bracket)).Result()
	if err != nil {
		return 0, fmt.Errorf("getting standings count: %w", err)
	}
	return count, nil
}
