package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateMatchID() string {
	return fmt.Sprintf("match_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GeneratePlayerID() string {
	return uuid.New().String()
}

func GenerateSessionID() string {
	return uuid.New().String()
}

func (r *CreateMatchRequest) Validate() error {
	if r.Variant == "" {
		return fmt.Errorf("variant is required")
	}
	if len(r.ClientSeed) > 128 {
		return fmt.Errorf("client seed too long")
	}
	return nil
}
