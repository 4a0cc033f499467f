package models

import "time"

// PlayerSession is the guest session backing a JWT. Players are
// anonymous; the session is their identity for the lifetime of the
// token.
type PlayerSession struct {
	PlayerID     string    `json:"player_id" redis:"player_id"`
	SessionID    string    `json:"session_id" redis:"session_id"`
	Name         string    `json:"name" redis:"name"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
	LastAccessed time.Time `json:"last_accessed" redis:"last_accessed"`
}
