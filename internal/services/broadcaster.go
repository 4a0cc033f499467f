package services

import "dice-arena-backend/internal/turn"

type Broadcaster interface {
	BroadcastTurnEvents(matchID, playerID string, events []turn.Event)
	BroadcastRoundComplete(matchID string, round int)
	BroadcastMatchFinished(matchID, winnerID string)
}
