package models

import "dice-arena-backend/internal/variant"

type GuestAuthRequest struct {
	Name string `json:"name" binding:"required,min=1,max=32"`
}

type CreateMatchRequest struct {
	Variant    string           `json:"variant" binding:"required"`
	RoomID     string           `json:"room_id"`
	ClientSeed string           `json:"client_seed"`
	Settings   variant.Settings `json:"settings"`
}

type JoinMatchRequest struct {
	Name string `json:"name"`
}

type RollRequest struct {
	RollSeq int `json:"roll_seq" binding:"required,min=1"`
}

type HoldRequest struct {
	Indices []int `json:"indices" binding:"required,min=1"`
}

type BankRequest struct {
	// Target is required when the sign die last came up negative.
	Target string `json:"target"`
}

type VerifyRequest struct {
	ServerSeed string `json:"server_seed" binding:"required"`
	ClientSeed string `json:"client_seed" binding:"required"`
	Nonce      int64  `json:"nonce" binding:"min=0"`
	Claimed    int    `json:"claimed" binding:"required"`
	Min        int    `json:"min" binding:"required"`
	Max        int    `json:"max" binding:"required"`
}

type VerificationData struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Round          int    `json:"round"`
	ServerSeed     string `json:"server_seed,omitempty"`
}

type RoundStatus struct {
	Round    int               `json:"round"`
	Complete bool              `json:"complete"`
	Statuses map[string]string `json:"statuses"`
}
