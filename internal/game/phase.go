package game

import (
	"time"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

// Phase is the lifecycle position of an estimation's game.
type Phase string

const (
	PhaseCreated   Phase = "CREATED"
	PhaseCommitted Phase = "COMMITTED"
	PhaseOpen      Phase = "OPEN"
	PhaseEnded     Phase = "ENDED"
	PhaseFinished  Phase = "FINISHED"
)

// PhaseOf derives the phase from the stored record. e.EndDate must already
// be resolved from the chain when it is known there.
func PhaseOf(e *model.Estimation, now time.Time) Phase {
	switch {
	case e.Revealed():
		return PhaseFinished
	case !e.Started():
		return PhaseCreated
	case e.EndDate == nil:
		return PhaseCommitted
	case now.Before(*e.EndDate):
		return PhaseOpen
	default:
		return PhaseEnded
	}
}

// phaseOfPublic decides the phase from the public projection when it can:
// a revealed or dated record is necessarily committed on-chain.
func phaseOfPublic(p *model.PublicEstimation, now time.Time) (Phase, bool) {
	switch {
	case p.Status == model.EstimationRevealed:
		return PhaseFinished, true
	case p.EndDate == nil:
		return "", false
	case now.Before(*p.EndDate):
		return PhaseOpen, true
	default:
		return PhaseEnded, true
	}
}
