package services

import "time"

const (
	KeyPlayerSession = "player:%s:session:%s"
	KeyMatch         = "match:%s"
	KeyMatchSecret   = "match:%s:secret"
	KeyMatchTurns    = "match:%s:round:%d:turns"
	KeyMatchScores   = "match:%s:scores"
	KeyMatchStats    = "match:%s:stats"
	KeyMatchAdvance  = "match:%s:round:%d:advanced"
	KeyRoomWins      = "room:%s:wins"
	KeyRateLimit     = "ratelimit:%s:%s"

	TTLPlayerSession = 24 * time.Hour
	TTLMatch         = 7 * 24 * time.Hour // also covers turns, scores and the secret

	DefaultRateLimitActions = 120 // per-minute cap across roll/hold/bank
)
