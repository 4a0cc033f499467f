package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"dice-arena-backend/internal/fair"
	"dice-arena-backend/internal/models"
	"dice-arena-backend/internal/turn"
	"dice-arena-backend/internal/variant"
)

// MatchService orchestrates matches around the pure core: it resolves
// the variant, loads and persists turn state, and applies bank deltas
// atomically. All game rules live in the variant and turn packages.
type MatchService struct {
	redisService *RedisService
	settings     *variant.SettingsLoader
	broadcaster  Broadcaster
	logger       zerolog.Logger
}

func NewMatchService(redisService *RedisService, settings *variant.SettingsLoader, logger zerolog.Logger) *MatchService {
	return &MatchService{
		redisService: redisService,
		settings:     settings,
		logger:       logger.With().Str("component", "match").Logger(),
	}
}

// SetBroadcaster wires the websocket hub in after construction; both
// sides need the other.
func (ms *MatchService) SetBroadcaster(b Broadcaster) {
	ms.broadcaster = b
}

func (ms *MatchService) CreateMatch(ctx context.Context, playerID, name string, req *models.CreateMatchRequest) (*models.Match, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match request: %v", err)
	}

	v, err := variant.Get(req.Variant)
	if err != nil {
		return nil, err
	}

	settings, err := ms.settings.Defaults(v.Tag())
	if err != nil {
		return nil, err
	}
	if req.Settings.MaxRounds != 0 {
		settings.MaxRounds = req.Settings.MaxRounds
	}
	if req.Settings.MaxPlayers != 0 {
		settings.MaxPlayers = req.Settings.MaxPlayers
	}
	if settings, err = v.ValidateSettings(settings); err != nil {
		return nil, err
	}

	secret, err := fair.NewServerSeed()
	if err != nil {
		return nil, err
	}

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		if clientSeed, err = fair.NewClientSeed(); err != nil {
			return nil, err
		}
	}

	match := &models.Match{
		ID:             models.GenerateMatchID(),
		RoomID:         req.RoomID,
		HostID:         playerID,
		Variant:        req.Variant,
		Settings:       settings,
		Status:         models.MatchStatusLobby,
		Players:        []models.Player{{ID: playerID, Name: name, JoinedAt: time.Now()}},
		ClientSeed:     clientSeed,
		ServerSeedHash: fair.Commit(secret),
		CreatedAt:      time.Now(),
	}

	if err := ms.redisService.StoreServerSeed(match.ID, secret); err != nil {
		return nil, err
	}
	if err := ms.redisService.SaveMatch(match); err != nil {
		return nil, err
	}

	ms.logger.Info().
		Str("match_id", match.ID).
		Str("variant", match.Variant).
		Str("host", playerID).
		Msg("match created")

	return match, nil
}

func (ms *MatchService) JoinMatch(ctx context.Context, matchID, playerID, name string) (*models.Match, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusLobby {
		return nil, fmt.Errorf("match already started")
	}
	if match.HasPlayer(playerID) {
		return match, nil
	}
	if len(match.Players) >= match.Settings.MaxPlayers {
		return nil, fmt.Errorf("match is full: %d players", match.Settings.MaxPlayers)
	}

	match.Players = append(match.Players, models.Player{ID: playerID, Name: name, JoinedAt: time.Now()})

	if err := ms.redisService.SaveMatch(match); err != nil {
		return nil, err
	}

	return match, nil
}

func (ms *MatchService) StartMatch(ctx context.Context, matchID, playerID string) (*models.Match, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusLobby {
		return nil, fmt.Errorf("match already started")
	}
	if match.HostID != playerID {
		return nil, fmt.Errorf("only the host can start the match")
	}

	v, err := variant.Get(match.Variant)
	if err != nil {
		return nil, err
	}
	if len(match.Players) < v.Config().MinPlayers {
		return nil, fmt.Errorf("need at least %d players", v.Config().MinPlayers)
	}

	match.Status = models.MatchStatusInProgress
	match.Round = 1

	if err := ms.initRound(match, v); err != nil {
		return nil, err
	}
	if err := ms.redisService.SaveMatch(match); err != nil {
		return nil, err
	}

	ms.logger.Info().Str("match_id", match.ID).Int("players", len(match.Players)).Msg("match started")

	return match, nil
}

func (ms *MatchService) initRound(match *models.Match, v variant.Variant) error {
	states := make([]turn.State, len(match.Players))
	for i, p := range match.Players {
		states[i] = turn.NewState(p.ID, match.Round, v.Config())
	}
	return ms.redisService.InitRoundTurns(match.ID, match.Round, states)
}

// GetMatch returns the match with live scores merged in.
func (ms *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	scores, err := ms.redisService.GetScores(matchID)
	if err != nil {
		return nil, err
	}
	stats, err := ms.redisService.GetMatchStats(matchID)
	if err != nil {
		return nil, err
	}
	for i := range match.Players {
		id := match.Players[i].ID
		match.Players[i].Score = scores[id]
		match.Players[i].Banks = int(stats[id+":banks"])
		match.Players[i].Busts = int(stats[id+":busts"])
	}

	return match, nil
}

// RotateSeed replaces the server seed before the match starts. Once
// play begins the committed seed is locked for the whole match.
func (ms *MatchService) RotateSeed(ctx context.Context, matchID, playerID string) (*models.Match, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	if match.Status != models.MatchStatusLobby {
		return nil, fmt.Errorf("seed is locked once the match starts")
	}
	if match.HostID != playerID {
		return nil, fmt.Errorf("only the host can rotate the seed")
	}

	secret, err := fair.NewServerSeed()
	if err != nil {
		return nil, err
	}

	match.ServerSeedHash = fair.Commit(secret)
	if err := ms.redisService.StoreServerSeed(match.ID, secret); err != nil {
		return nil, err
	}
	if err := ms.redisService.SaveMatch(match); err != nil {
		return nil, err
	}

	ms.logger.Info().Str("match_id", match.ID).Msg("server seed rotated")

	return match, nil
}

func (ms *MatchService) Roll(ctx context.Context, matchID, playerID string, rollSeq int) (*turn.State, []turn.Event, error) {
	return ms.applyAction(ctx, matchID, playerID, turn.ActionRoll, turn.Payload{RollSeq: rollSeq})
}

func (ms *MatchService) Hold(ctx context.Context, matchID, playerID string, indices []int) (*turn.State, []turn.Event, error) {
	return ms.applyAction(ctx, matchID, playerID, turn.ActionHold, turn.Payload{HoldIndices: indices})
}

func (ms *MatchService) Bank(ctx context.Context, matchID, playerID, target string) (*turn.State, []turn.Event, error) {
	return ms.applyAction(ctx, matchID, playerID, turn.ActionBank, turn.Payload{BankTarget: target})
}

// ForceBust is the entry point for external timers; it goes through
// the same transition as a player action so invariants hold.
func (ms *MatchService) ForceBust(ctx context.Context, matchID, playerID string) (*turn.State, []turn.Event, error) {
	return ms.applyAction(ctx, matchID, playerID, turn.ActionBust, turn.Payload{})
}

func (ms *MatchService) applyAction(ctx context.Context, matchID, playerID string, action turn.Action, payload turn.Payload) (*turn.State, []turn.Event, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, nil, err
	}
	if match.Status != models.MatchStatusInProgress {
		return nil, nil, fmt.Errorf("match is not in progress")
	}
	if !match.HasPlayer(playerID) {
		return nil, nil, fmt.Errorf("player %s is not in this match", playerID)
	}

	v, err := variant.Get(match.Variant)
	if err != nil {
		return nil, nil, err
	}

	secret, err := ms.redisService.GetServerSeed(matchID)
	if err != nil {
		return nil, nil, err
	}
	seeds := fair.SeedPair{
		ServerSeed:     secret,
		ServerSeedHash: match.ServerSeedHash,
		ClientSeed:     match.ClientSeed,
	}

	state, err := ms.redisService.GetTurnState(matchID, match.Round, playerID)
	if err != nil {
		return nil, nil, err
	}

	machine := turn.NewMachine(v, seeds)
	next, events, err := machine.Transition(*state, action, payload)
	if err != nil {
		return nil, nil, err
	}

	// A replayed roll changed nothing; skip persistence entirely.
	if len(events) > 0 && events[0].Replayed {
		return &next, events, nil
	}

	complete, err := ms.persist(match, &next, events)
	if err != nil {
		return nil, nil, err
	}

	if ms.broadcaster != nil {
		ms.broadcaster.BroadcastTurnEvents(matchID, playerID, events)
	}

	if complete {
		if err := ms.advanceRound(match, v); err != nil {
			return nil, nil, err
		}
	}

	return &next, events, nil
}

// persist writes the new turn state, routing banks through the atomic
// bank script. It returns whether this write completed the round.
func (ms *MatchService) persist(match *models.Match, state *turn.State, events []turn.Event) (bool, error) {
	ms.recordStats(match.ID, state.Player, events)

	for _, ev := range events {
		if ev.Type != turn.EventBanked {
			continue
		}

		delta := int64(ev.Amount)
		if !ev.Positive {
			delta = -delta
		}
		return ms.redisService.ApplyBank(match.ID, match.Round, state, ev.Target, delta)
	}

	return ms.redisService.SaveTurnState(match.ID, match.Round, state)
}

// recordStats keeps advisory bank/bust counters; failures only log.
func (ms *MatchService) recordStats(matchID, playerID string, events []turn.Event) {
	for _, ev := range events {
		var stat string
		switch ev.Type {
		case turn.EventBanked:
			stat = "banks"
		case turn.EventBusted:
			stat = "busts"
		default:
			continue
		}
		if err := ms.redisService.IncrPlayerStat(matchID, playerID, stat); err != nil {
			ms.logger.Error().Err(err).Str("match_id", matchID).Msg("failed to record stat")
		}
	}
}

func (ms *MatchService) advanceRound(match *models.Match, v variant.Variant) error {
	claimed, err := ms.redisService.TryAdvanceRound(match.ID, match.Round)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if ms.broadcaster != nil {
		ms.broadcaster.BroadcastRoundComplete(match.ID, match.Round)
	}

	if match.Round >= match.Settings.MaxRounds {
		return ms.finishMatch(match)
	}

	match.Round++
	if err := ms.initRound(match, v); err != nil {
		return err
	}
	return ms.redisService.SaveMatch(match)
}

func (ms *MatchService) finishMatch(match *models.Match) error {
	secret, err := ms.redisService.GetServerSeed(match.ID)
	if err != nil {
		return err
	}
	if !fair.VerifyCommitment(secret, match.ServerSeedHash) {
		return fmt.Errorf("%w: match %s", fair.ErrSeedVerification, match.ID)
	}

	scores, err := ms.redisService.GetScores(match.ID)
	if err != nil {
		return err
	}

	match.Status = models.MatchStatusFinished
	match.ServerSeed = secret // reveal for post-match verification
	match.EndedAt = time.Now()
	match.WinnerID = pickWinner(match.Players, scores)

	if err := ms.redisService.SaveMatch(match); err != nil {
		return err
	}

	if match.RoomID != "" && match.WinnerID != "" {
		if err := ms.redisService.IncrRoomWin(match.RoomID, match.WinnerID); err != nil {
			ms.logger.Error().Err(err).Str("match_id", match.ID).Msg("failed to record room win")
		}
	}

	if ms.broadcaster != nil {
		ms.broadcaster.BroadcastMatchFinished(match.ID, match.WinnerID)
	}

	ms.logger.Info().
		Str("match_id", match.ID).
		Str("winner", match.WinnerID).
		Msg("match finished")

	return nil
}

// pickWinner takes the highest score; ties go to the earliest joiner
// so the result is deterministic.
func pickWinner(players []models.Player, scores map[string]int64) string {
	sorted := append([]models.Player(nil), players...)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].ID], scores[sorted[j].ID]
		if si != sj {
			return si > sj
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	if len(sorted) == 0 {
		return ""
	}
	return sorted[0].ID
}

// RoundStatus is the completion query the orchestrator polls after
// each state-changing call.
func (ms *MatchService) RoundStatus(ctx context.Context, matchID string) (*models.RoundStatus, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	states, err := ms.redisService.GetRoundTurns(matchID, match.Round)
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]string, len(states))
	all := make([]turn.State, 0, len(states))
	for player, st := range states {
		statuses[player] = string(st.Status)
		all = append(all, st)
	}

	return &models.RoundStatus{
		Round:    match.Round,
		Complete: turn.RoundComplete(all),
		Statuses: statuses,
	}, nil
}

// Verification exposes everything a player needs to audit the match:
// the commitment up front, the secret once the match has finished.
func (ms *MatchService) Verification(ctx context.Context, matchID string) (*models.VerificationData, error) {
	match, err := ms.redisService.GetMatch(matchID)
	if err != nil {
		return nil, err
	}

	data := &models.VerificationData{
		ServerSeedHash: match.ServerSeedHash,
		ClientSeed:     match.ClientSeed,
		Round:          match.Round,
	}
	if match.Status == models.MatchStatusFinished {
		data.ServerSeed = match.ServerSeed
	}

	return data, nil
}

// VerifyDraw re-runs a single draw; no state is touched.
func (ms *MatchService) VerifyDraw(req *models.VerifyRequest) (bool, int, error) {
	got, err := fair.Draw(req.ServerSeed, req.ClientSeed, req.Nonce, req.Min, req.Max)
	if err != nil {
		return false, 0, err
	}
	return got == req.Claimed, got, nil
}
