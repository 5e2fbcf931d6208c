package services

// Bracket events published to live viewers of a tournament.
const (
	EventTournamentStarted  = "tournament_started"
	EventMatchReported      = "match_reported"
	EventMatchDisputed      = "match_disputed"
	EventMatchResolved      = "match_resolved"
	EventStageResolved      = "stage_resolved"
	EventStageAdvanced      = "stage_advanced"
	EventTournamentFinished = "tournament_finished"
	EventTournamentEnded    = "tournament_ended"
)

// BracketNotifier publishes bracket events. brackets.Hub implements it.
type BracketNotifier interface {
	Publish(tournament, eventType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, string, interface{}) {}

func notifierOrNoop(n BracketNotifier) BracketNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
