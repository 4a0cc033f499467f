package models_test

import (
	"testing"

	"dice-arena-backend/internal/models"
)

func TestModels(t *testing.T) {
	match := &models.Match{
		ID:      models.GenerateMatchID(),
		HostID:  "alice",
		Variant: "tenthousand",
		Status:  models.MatchStatusLobby,
		Players: []models.Player{{ID: "alice", Name: "Alice"}},
	}

	if match.ID == "" {
		t.Error("Match ID should not be empty")
	}

	if !match.HasPlayer("alice") {
		t.Error("Host should count as a joined player")
	}
	if match.HasPlayer("bob") {
		t.Error("Unjoined player should not be found")
	}

	req := &models.CreateMatchRequest{
		Variant:    "doubles",
		ClientSeed: "my-seed",
	}

	if err := req.Validate(); err != nil {
		t.Errorf("CreateMatchRequest validation failed: %v", err)
	}

	invalid := &models.CreateMatchRequest{}
	if err := invalid.Validate(); err == nil {
		t.Error("Missing variant should fail validation")
	}

	if models.GeneratePlayerID() == models.GeneratePlayerID() {
		t.Error("Player IDs should be unique")
	}
}
