package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

func TestPhaseOf(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	salt := "0x01"
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		rec  model.Estimation
		want Phase
	}{
		{"no salt", model.Estimation{Status: model.EstimationUnrevealed}, PhaseCreated},
		{"salt without end date", model.Estimation{Status: model.EstimationUnrevealed, Salt: &salt}, PhaseCommitted},
		{"bet window running", model.Estimation{Status: model.EstimationUnrevealed, Salt: &salt, EndDate: &future}, PhaseOpen},
		{"end date reached", model.Estimation{Status: model.EstimationUnrevealed, Salt: &salt, EndDate: &now}, PhaseEnded},
		{"end date passed", model.Estimation{Status: model.EstimationUnrevealed, Salt: &salt, EndDate: &past}, PhaseEnded},
		{"revealed", model.Estimation{Status: model.EstimationRevealed, Salt: &salt, EndDate: &past}, PhaseFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseOf(&tt.rec, now))
		})
	}
}

func TestPhaseOfPublic_AgreesWithPhaseOf(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	salt := "0x01"
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	recs := []model.Estimation{
		{Status: model.EstimationUnrevealed, Salt: &salt, EndDate: &future},
		{Status: model.EstimationUnrevealed, Salt: &salt, EndDate: &past},
		{Status: model.EstimationRevealed, Salt: &salt, EndDate: &past},
		{Status: model.EstimationRevealed, Salt: &salt},
	}
	for _, rec := range recs {
		got, ok := phaseOfPublic(rec.Public(), now)
		assert.True(t, ok)
		assert.Equal(t, PhaseOf(&rec, now), got)
	}

	for _, rec := range []model.Estimation{
		{Status: model.EstimationUnrevealed},
		{Status: model.EstimationUnrevealed, Salt: &salt},
	} {
		_, ok := phaseOfPublic(rec.Public(), now)
		assert.False(t, ok, "undated unrevealed records need the internal row")
	}
}
