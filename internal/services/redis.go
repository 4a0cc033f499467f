package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dice-arena-backend/internal/config"
	"dice-arena-backend/internal/models"
	"dice-arena-backend/internal/turn"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StorePlayerSession(session *models.PlayerSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyPlayerSession, session.PlayerID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetPlayerSession(playerID, sessionID string) (*models.PlayerSession, error) {
	key := fmt.Sprintf(KeyPlayerSession, playerID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.PlayerSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLPlayerSession)

	return &session, nil
}

func (s *RedisService) DeletePlayerSession(playerID, sessionID string) error {
	key := fmt.Sprintf(KeyPlayerSession, playerID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) SaveMatch(match *models.Match) error {
	key := fmt.Sprintf(KeyMatch, match.ID)

	match.UpdatedAt = time.Now()

	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLMatch).Err()
}

func (s *RedisService) GetMatch(matchID string) (*models.Match, error) {
	key := fmt.Sprintf(KeyMatch, matchID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("match not found: %s", matchID)
		}
		return nil, fmt.Errorf("failed to get match: %v", err)
	}

	var match models.Match
	if err := json.Unmarshal([]byte(data), &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %v", err)
	}

	return &match, nil
}

func (s *RedisService) DeleteMatch(matchID string) error {
	key := fmt.Sprintf(KeyMatch, matchID)
	return s.client.Del(s.ctx, key).Err()
}

// StoreServerSeed keeps the secret away from the match record so it
// can never leak through a match read before the reveal.
func (s *RedisService) StoreServerSeed(matchID, secret string) error {
	key := fmt.Sprintf(KeyMatchSecret, matchID)
	return s.client.Set(s.ctx, key, secret, TTLMatch).Err()
}

func (s *RedisService) GetServerSeed(matchID string) (string, error) {
	key := fmt.Sprintf(KeyMatchSecret, matchID)

	secret, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to get server seed: %v", err)
	}
	return secret, nil
}

// InitRoundTurns writes the fresh turn states for a round in one shot.
func (s *RedisService) InitRoundTurns(matchID string, round int, states []turn.State) error {
	key := fmt.Sprintf(KeyMatchTurns, matchID, round)

	fields := make([]interface{}, 0, len(states)*2)
	for _, st := range states {
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to marshal turn state: %v", err)
		}
		fields = append(fields, st.Player, data)
	}

	if err := s.client.HSet(s.ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to init round turns: %v", err)
	}

	return s.client.Expire(s.ctx, key, TTLMatch).Err()
}

func (s *RedisService) GetTurnState(matchID string, round int, playerID string) (*turn.State, error) {
	key := fmt.Sprintf(KeyMatchTurns, matchID, round)

	data, err := s.client.HGet(s.ctx, key, playerID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("no turn state for player %s in round %d", playerID, round)
		}
		return nil, fmt.Errorf("failed to get turn state: %v", err)
	}

	var state turn.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turn state: %v", err)
	}

	return &state, nil
}

// GetRoundTurns reads all players' states for a round. A single HGETALL
// is one consistent snapshot, which the completion query relies on.
func (s *RedisService) GetRoundTurns(matchID string, round int) (map[string]turn.State, error) {
	key := fmt.Sprintf(KeyMatchTurns, matchID, round)

	raw, err := s.client.HGetAll(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round turns: %v", err)
	}

	states := make(map[string]turn.State, len(raw))
	for player, data := range raw {
		var state turn.State
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn state for %s: %v", player, err)
		}
		states[player] = state
	}

	return states, nil
}

// saveTurnScript stores one player's state and reports round completion
// in the same atomic step, so concurrent writers can never observe a
// half-updated round.
var saveTurnScript = redis.NewScript(`
	local key = KEYS[1]
	local player = ARGV[1]
	local state = ARGV[2]

	redis.call("HSET", key, player, state)

	local vals = redis.call("HVALS", key)
	for _, v in ipairs(vals) do
		local s = cjson.decode(v)
		if s.status ~= "busted" and s.status ~= "banked" then
			return 0
		end
	end

	return 1
`)

func (s *RedisService) SaveTurnState(matchID string, round int, state *turn.State) (bool, error) {
	key := fmt.Sprintf(KeyMatchTurns, matchID, round)

	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("failed to marshal turn state: %v", err)
	}

	complete, err := saveTurnScript.Run(s.ctx, s.client, []string{key}, state.Player, data).Int()
	if err != nil {
		return false, fmt.Errorf("failed to save turn state: %v", err)
	}

	return complete == 1, nil
}

// applyBankScript persists the banked turn state, applies the score
// delta to the credited (or debited) player and checks round
// completion as one transactional unit. The HINCRBY keeps concurrent
// banks targeting the same player safe.
var applyBankScript = redis.NewScript(`
	local turnsKey = KEYS[1]
	local scoresKey = KEYS[2]
	local player = ARGV[1]
	local state = ARGV[2]
	local target = ARGV[3]
	local delta = tonumber(ARGV[4])

	redis.call("HSET", turnsKey, player, state)
	redis.call("HINCRBY", scoresKey, target, delta)

	local vals = redis.call("HVALS", turnsKey)
	for _, v in ipairs(vals) do
		local s = cjson.decode(v)
		if s.status ~= "busted" and s.status ~= "banked" then
			return 0
		end
	end

	return 1
`)

func (s *RedisService) ApplyBank(matchID string, round int, state *turn.State, target string, delta int64) (bool, error) {
	turnsKey := fmt.Sprintf(KeyMatchTurns, matchID, round)
	scoresKey := fmt.Sprintf(KeyMatchScores, matchID)

	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("failed to marshal turn state: %v", err)
	}

	complete, err := applyBankScript.Run(s.ctx, s.client,
		[]string{turnsKey, scoresKey},
		state.Player, data, target, delta).Int()
	if err != nil {
		return false, fmt.Errorf("failed to apply bank: %v", err)
	}

	s.client.Expire(s.ctx, scoresKey, TTLMatch)

	return complete == 1, nil
}

// TryAdvanceRound claims the round advance exactly once. Two callers
// may both observe a complete round; only the SETNX winner advances.
func (s *RedisService) TryAdvanceRound(matchID string, round int) (bool, error) {
	key := fmt.Sprintf(KeyMatchAdvance, matchID, round)

	ok, err := s.client.SetNX(s.ctx, key, 1, TTLMatch).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim round advance: %v", err)
	}
	return ok, nil
}

func (s *RedisService) GetScores(matchID string) (map[string]int64, error) {
	key := fmt.Sprintf(KeyMatchScores, matchID)

	raw, err := s.client.HGetAll(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get scores: %v", err)
	}

	scores := make(map[string]int64, len(raw))
	for player, v := range raw {
		n, _ := strconv.ParseInt(v, 10, 64)
		scores[player] = n
	}

	return scores, nil
}

// IncrPlayerStat bumps a per-match counter such as banks or busts.
// Stats are advisory; they never gate game logic.
func (s *RedisService) IncrPlayerStat(matchID, playerID, stat string) error {
	key := fmt.Sprintf(KeyMatchStats, matchID)
	field := fmt.Sprintf("%s:%s", playerID, stat)

	if err := s.client.HIncrBy(s.ctx, key, field, 1).Err(); err != nil {
		return fmt.Errorf("failed to incr player stat: %v", err)
	}
	return s.client.Expire(s.ctx, key, TTLMatch).Err()
}

func (s *RedisService) GetMatchStats(matchID string) (map[string]int64, error) {
	key := fmt.Sprintf(KeyMatchStats, matchID)

	raw, err := s.client.HGetAll(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get match stats: %v", err)
	}

	stats := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, _ := strconv.ParseInt(v, 10, 64)
		stats[field] = n
	}

	return stats, nil
}

// IncrRoomWin bumps the winner's tally on the room leaderboard.
func (s *RedisService) IncrRoomWin(roomID, playerID string) error {
	key := fmt.Sprintf(KeyRoomWins, roomID)
	return s.client.ZIncrBy(s.ctx, key, 1, playerID).Err()
}

func (s *RedisService) GetRoomWins(roomID string, limit int64) ([]redis.Z, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	key := fmt.Sprintf(KeyRoomWins, roomID)

	wins, err := s.client.ZRevRangeWithScores(s.ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room wins: %v", err)
	}

	return wins, nil
}

func (s *RedisService) CheckRateLimit(playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(playerID, action string) error {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)
	return s.client.Del(s.ctx, key).Err()
}

// CleanupMatch removes a match and every key hanging off it.
func (s *RedisService) CleanupMatch(matchID string, rounds int) error {
	keys := []string{
		fmt.Sprintf(KeyMatch, matchID),
		fmt.Sprintf(KeyMatchSecret, matchID),
		fmt.Sprintf(KeyMatchScores, matchID),
		fmt.Sprintf(KeyMatchStats, matchID),
	}
	for r := 1; r <= rounds; r++ {
		keys = append(keys,
			fmt.Sprintf(KeyMatchTurns, matchID, r),
			fmt.Sprintf(KeyMatchAdvance, matchID, r))
	}
	return s.client.Del(s.ctx, keys...).Err()
}
