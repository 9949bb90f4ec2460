package status

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/zappy/internal/orchestrator"
)

var completedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func byStage(rs RunStatus) map[orchestrator.StageID]StageInfo {
	m := make(map[orchestrator.StageID]StageInfo, len(rs.Stages))
	for _, s := range rs.Stages {
		m[s.Stage] = s
	}
	return m
}

func TestFromSnapshot_Idle(t *testing.T) {
	reg := orchestrator.DefaultRegistry()
	rs := FromSnapshot(reg, orchestrator.Snapshot{Phase: orchestrator.PhaseIdle, TotalStages: 6})

	require.Len(t, rs.Stages, 6)
	for _, s := range rs.Stages {
		assert.Equal(t, StatusWaiting, s.Status, s.Stage)
	}
	assert.Equal(t, 0, rs.Percent)
	assert.Equal(t, "0/6 stages complete (0%)", rs.Summary())
}

func TestFromSnapshot_MidRun(t *testing.T) {
	reg := orchestrator.DefaultRegistry()
	snap := orchestrator.Snapshot{
		RunID:        "run-1",
		Topic:        "sleep",
		Phase:        orchestrator.PhaseRunning,
		Rank:         3,
		ActiveStages: []orchestrator.StageID{orchestrator.StageCompliance, orchestrator.StageEnhancer, orchestrator.StageSEO},
		Completed: []orchestrator.StageResult{
			{Stage: orchestrator.StageResearcher, Content: "facts", CompletedAt: completedAt},
			{Stage: orchestrator.StageWriter, Content: "draft!", CompletedAt: completedAt},
		},
		TotalStages: 6,
	}

	rs := FromSnapshot(reg, snap)
	stages := byStage(rs)
	assert.Equal(t, StatusCompleted, stages[orchestrator.StageResearcher].Status)
	assert.Equal(t, 5, stages[orchestrator.StageResearcher].Bytes)
	assert.Equal(t, completedAt, stages[orchestrator.StageWriter].CompletedAt)
	assert.Equal(t, StatusActive, stages[orchestrator.StageSEO].Status)
	assert.Equal(t, StatusWaiting, stages[orchestrator.StageEditor].Status)
	assert.Equal(t, "Search Optimization", stages[orchestrator.StageSEO].Role)
	assert.Equal(t, 33, rs.Percent)
	assert.Equal(t, "run-1", rs.RunID)

	counts := rs.Counts()
	assert.Equal(t, 2, counts[StatusCompleted])
	assert.Equal(t, 3, counts[StatusActive])
	assert.Equal(t, 1, counts[StatusWaiting])
}

func TestFromSnapshot_Failed(t *testing.T) {
	reg := orchestrator.DefaultRegistry()
	snap := orchestrator.Snapshot{
		Phase: orchestrator.PhaseFailed,
		Completed: []orchestrator.StageResult{
			{Stage: orchestrator.StageResearcher, Content: "facts"},
		},
		Err:         orchestrator.NewGenerationError(orchestrator.StageWriter, errors.New("quota exceeded")),
		TotalStages: 6,
	}

	rs := FromSnapshot(reg, snap)
	stages := byStage(rs)
	assert.Equal(t, StatusFailed, stages[orchestrator.StageWriter].Status)
	assert.Equal(t, StatusWaiting, stages[orchestrator.StageEditor].Status)
	assert.Equal(t, "quota exceeded", rs.Error)
	assert.Equal(t, "1/6 stages complete (17%): failed: quota exceeded", rs.Summary())
}

func TestFromSnapshot_Succeeded(t *testing.T) {
	reg := orchestrator.DefaultRegistry()
	var done []orchestrator.StageResult
	for _, id := range orchestrator.StageIDs() {
		done = append(done, orchestrator.StageResult{Stage: id, Content: "x"})
	}

	rs := FromSnapshot(reg, orchestrator.Snapshot{Phase: orchestrator.PhaseSucceeded, Completed: done, TotalStages: 6})
	assert.Equal(t, 100, rs.Percent)
	assert.Equal(t, "6/6 stages complete (100%): done", rs.Summary())
}
