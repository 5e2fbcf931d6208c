package services

import (
	"fmt"

	"github.com/Dosada05/esports-arena/models"
)

type LifecycleEvent string

const (
	EventStart   LifecycleEvent = "start"
	EventAdvance LifecycleEvent = "advance"
	EventFinish  LifecycleEvent = "finish"
	EventEnd     LifecycleEvent = "end"
)

// LifecycleState is the position of a tournament in its state machine. Stage is meaningful only while running.
type LifecycleState struct {
	Status    models.TournamentStatus
	Stage     int
	LastStage int
}

func stateOf(t *models.Tournament) LifecycleState {
	return LifecycleState{Status: t.Status, Stage: t.CurrentStage, LastStage: t.StageCount()}
}

// Transition is the tournament lifecycle:
//
//	signing    --start-->   running(1)
//	running(k) --advance--> running(k+1)   k < last
//	running(k) --finish-->  finished       k == last
//	signing, running --end--> finished
func Transition(from LifecycleState, ev LifecycleEvent) (LifecycleState, error) {
	to := from
	switch {
	case from.Status == models.TournamentStatusSigning && ev == EventStart:
		if from.LastStage < 1 {
			break
		}
		to.Status, to.Stage = models.TournamentStatusRunning, 1
		return to, nil

	case from.Status == models.TournamentStatusRunning && ev == EventAdvance:
		if from.Stage < 1 || from.Stage >= from.LastStage {
			break
		}
		to.Stage = from.Stage + 1
		return to, nil

	case from.Status == models.TournamentStatusRunning && ev == EventFinish:
		if from.Stage != from.LastStage {
			break
		}
		to.Status = models.TournamentStatusFinished
		return to, nil

	case ev == EventEnd && from.Status != models.TournamentStatusFinished:
		to.Status = models.TournamentStatusFinished
		return to, nil
	}
	return from, fmt.Errorf("%w: %s from %s(stage %d)", ErrInvalidTransition, ev, from.Status, from.Stage)
}

// applyTransition moves t along the lifecycle or leaves it untouched.
func applyTransition(t *models.Tournament, ev LifecycleEvent) error {
	next, err := Transition(stateOf(t), ev)
	if err != nil {
		return err
	}
	t.Status, t.CurrentStage = next.Status, next.Stage
	return nil
}
