package ranking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Leaderboards — кэш рейтингов. Сессионный сервер только читает глобальный
// ранг и поддерживает кэш актуальным при логине и модерации.
type Leaderboards interface {
	GlobalRank(ctx context.Context, userID int32, mode uint8) (int32, error)
	Update(ctx context.Context, userID int32, mode uint8, performance int16, rankedScore int64, country string) error
	Remove(ctx context.Context, userID int32, country string) error
}

// Redis реализует Leaderboards поверх redis sorted sets:
// leaderboard:<mode> и leaderboard:<mode>:<country>, score = pp.
type Redis struct {
	client *redis.Client
}

// NewRedis создаёт кэш поверх готового клиента.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func modeKey(mode uint8) string {
	return "leaderboard:" + strconv.Itoa(int(mode))
}

func countryKey(mode uint8, country string) string {
	return modeKey(mode) + ":" + country
}

// GlobalRank returns the 1-based global rank, 0 when the user is unranked.
func (r *Redis) GlobalRank(ctx context.Context, userID int32, mode uint8) (int32, error) {
	rank, err := r.client.ZRevRank(ctx, modeKey(mode), strconv.Itoa(int(userID))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetching global rank of user %d: %w", userID, err)
	}
	return int32(rank) + 1, nil
}

// Update writes the user's performance into the global and country sets.
func (r *Redis) Update(ctx context.Context, userID int32, mode uint8, performance int16, rankedScore int64, country string) error {
	member := redis.Z{Score: float64(performance), Member: strconv.Itoa(int(userID))}

	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, modeKey(mode), member)
	pipe.ZAdd(ctx, countryKey(mode, country), member)
	// score-рейтинг держим отдельным множеством
	pipe.ZAdd(ctx, modeKey(mode)+":rscore", redis.Z{
		Score:  float64(rankedScore),
		Member: strconv.Itoa(int(userID)),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("updating leaderboards for user %d: %w", userID, err)
	}
	return nil
}

// Remove drops the user from every leaderboard set (restriction path).
func (r *Redis) Remove(ctx context.Context, userID int32, country string) error {
	member := strconv.Itoa(int(userID))

	pipe := r.client.Pipeline()
	for mode := uint8(0); mode < 4; mode++ {
		pipe.ZRem(ctx, modeKey(mode), member)
		pipe.ZRem(ctx, modeKey(mode)+":rscore", member)
		pipe.ZRem(ctx, countryKey(mode, country), member)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing user %d from leaderboards: %w", userID, err)
	}
	return nil
}
