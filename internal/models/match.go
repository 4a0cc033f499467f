package models

import (
	"time"

	"dice-arena-backend/internal/variant"
)

type MatchStatus string

const (
	MatchStatusLobby      MatchStatus = "lobby"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
)

type Player struct {
	ID       string    `json:"id" redis:"id"`
	Name     string    `json:"name" redis:"name"`
	Score    int64     `json:"score" redis:"score"`
	Banks    int       `json:"banks" redis:"banks"`
	Busts    int       `json:"busts" redis:"busts"`
	JoinedAt time.Time `json:"joined_at" redis:"joined_at"`
}

type Match struct {
	ID      string `json:"id" redis:"id"`
	RoomID  string `json:"room_id" redis:"room_id"`
	HostID  string `json:"host_id" redis:"host_id"`
	Variant string `json:"variant" redis:"variant"`

	Settings variant.Settings `json:"settings" redis:"-"`
	Status   MatchStatus      `json:"status" redis:"status"`
	Players  []Player         `json:"players" redis:"-"`
	Round    int              `json:"round" redis:"round"`

	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	// ServerSeed stays empty until the match finishes and the secret
	// is revealed for verification.
	ServerSeed string `json:"server_seed,omitempty" redis:"server_seed"`

	WinnerID  string    `json:"winner_id,omitempty" redis:"winner_id"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitzero" redis:"ended_at"`
}

// HasPlayer reports whether a player already joined.
func (m *Match) HasPlayer(playerID string) bool {
	for _, p := range m.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}
