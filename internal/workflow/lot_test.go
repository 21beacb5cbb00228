package workflow_test

import (
	"testing"

	"github.com/juggajay/site-proof-sub006/internal/domain"
	"github.com/juggajay/site-proof-sub006/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateLotShape(t *testing.T) {
	tests := []struct {
		name        string
		lotType     domain.LotType
		areaZone    *string
		structureID *string
		code        string
	}{
		{name: "chainage needs nothing", lotType: domain.LotTypeChainage},
		{name: "area with zone", lotType: domain.LotTypeArea, areaZone: strPtr("Zone 3")},
		{name: "area without zone", lotType: domain.LotTypeArea, code: domain.CodeAreaZoneRequired},
		{name: "area with blank zone", lotType: domain.LotTypeArea, areaZone: strPtr(""), code: domain.CodeAreaZoneRequired},
		{name: "area with structure only", lotType: domain.LotTypeArea, structureID: strPtr("BR-01"), code: domain.CodeAreaZoneRequired},
		{name: "structure with id", lotType: domain.LotTypeStructure, structureID: strPtr("BR-01")},
		{name: "structure without id", lotType: domain.LotTypeStructure, code: domain.CodeStructureIDRequired},
		{name: "unknown type", lotType: domain.LotType("pipe"), code: domain.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workflow.ValidateLotShape(tt.lotType, tt.areaZone, tt.structureID)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.True(t, domain.IsCode(err, tt.code))
		})
	}
}

func TestValidateLotShape_NamesField(t *testing.T) {
	err := workflow.ValidateLotShape(domain.LotTypeStructure, nil, nil)
	var e *domain.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "structureId", e.Field)
	assert.Equal(t, "structureId", e.Details["field"])
}

func TestValidateLotTransition(t *testing.T) {
	tests := []struct {
		from, to domain.LotStatus
		ok       bool
	}{
		{domain.LotStatusNotStarted, domain.LotStatusInProgress, true},
		{domain.LotStatusNotStarted, domain.LotStatusCompleted, true},
		{domain.LotStatusInProgress, domain.LotStatusInProgress, true},
		{domain.LotStatusAwaitingTest, domain.LotStatusInProgress, false},
		{domain.LotStatusCompleted, domain.LotStatusNotStarted, false},
		{domain.LotStatusInProgress, domain.LotStatusNCRRaised, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := workflow.ValidateLotTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, domain.IsCode(err, domain.CodeInvalidStatusTransition))
			}
		})
	}
}

func TestDisplayLotStatus_OverlayKeepsProgression(t *testing.T) {
	lot := &domain.Lot{Status: domain.LotStatusAwaitingTest, HasOpenNCR: true}
	assert.Equal(t, domain.LotStatusNCRRaised, workflow.DisplayLotStatus(lot))

	lot.HasOpenNCR = false
	assert.Equal(t, domain.LotStatusAwaitingTest, workflow.DisplayLotStatus(lot))
}

func TestCheckLotCompletion(t *testing.T) {
	assert.NoError(t, workflow.CheckLotCompletion(workflow.LotCompletionGate{}))
	assert.True(t, domain.IsCode(workflow.CheckLotCompletion(workflow.LotCompletionGate{HasOpenNCR: true}), domain.CodeLotHasOpenNCR))
	assert.True(t, domain.IsCode(workflow.CheckLotCompletion(workflow.LotCompletionGate{UnsatisfiedITPItems: 2}), domain.CodeITPIncomplete))
	assert.True(t, domain.IsCode(workflow.CheckLotCompletion(workflow.LotCompletionGate{UnreleasedHoldPoints: 1}), domain.CodeHoldPointsUnreleased))
}

func TestCheckLotDeletable(t *testing.T) {
	assert.NoError(t, workflow.CheckLotDeletable(&domain.Lot{Status: domain.LotStatusInProgress}, 0))

	err := workflow.CheckLotDeletable(&domain.Lot{Status: domain.LotStatusCompleted}, 0)
	assert.True(t, domain.IsCode(err, domain.CodeLotCompleted))

	err = workflow.CheckLotDeletable(&domain.Lot{Status: domain.LotStatusNotStarted}, 1)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestStartOnFirstCompletion(t *testing.T) {
	lot := &domain.Lot{Status: domain.LotStatusNotStarted}
	assert.True(t, workflow.StartOnFirstCompletion(lot))
	assert.Equal(t, domain.LotStatusInProgress, lot.Status)
	assert.False(t, workflow.StartOnFirstCompletion(lot))
}
