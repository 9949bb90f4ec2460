// Package status projects a run snapshot onto a per-stage dashboard view.
package status

import (
	"fmt"
	"time"

	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// StageStatus is the display state of one stage.
type StageStatus string

const (
	StatusWaiting   StageStatus = "waiting"
	StatusActive    StageStatus = "active"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
)

// StageInfo describes one stage of the current run.
type StageInfo struct {
	Stage       orchestrator.StageID
	Name        string
	Role        string
	Rank        int
	Status      StageStatus
	Bytes       int       // size of the stage's output when completed
	CompletedAt time.Time // zero unless completed
}

// RunStatus is the dashboard view of one snapshot.
type RunStatus struct {
	RunID   string
	Topic   string
	Phase   orchestrator.Phase
	Stages  []StageInfo
	Percent int
	Error   string
}

// FromSnapshot derives the per-stage view of snap for the stages of reg.
// A stage is completed if it has a result, active if it is executing,
// failed if the run's error names it, and waiting otherwise.
func FromSnapshot(reg *orchestrator.Registry, snap orchestrator.Snapshot) RunStatus {
	failed, hasFailed := orchestrator.FailedStage(snap.Err)

	rs := RunStatus{
		RunID:   snap.RunID,
		Topic:   snap.Topic,
		Phase:   snap.Phase,
		Percent: int(snap.ProgressRatio()*100 + 0.5),
		Error:   snap.ErrMessage(),
	}
	for _, def := range reg.Stages() {
		info := StageInfo{
			Stage:  def.ID,
			Name:   def.DisplayName,
			Role:   def.Role,
			Rank:   def.Rank,
			Status: StatusWaiting,
		}
		switch res, done := snap.Result(def.ID); {
		case done:
			info.Status = StatusCompleted
			info.Bytes = len(res.Content)
			info.CompletedAt = res.CompletedAt
		case snap.IsActive(def.ID):
			info.Status = StatusActive
		case hasFailed && failed == def.ID:
			info.Status = StatusFailed
		}
		rs.Stages = append(rs.Stages, info)
	}
	return rs
}

// Counts returns how many stages are in each status.
func (rs RunStatus) Counts() map[StageStatus]int {
	counts := make(map[StageStatus]int, 4)
	for _, s := range rs.Stages {
		counts[s.Status]++
	}
	return counts
}

// Summary is a one-line description such as "3/6 stages complete (50%)".
func (rs RunStatus) Summary() string {
	line := fmt.Sprintf("%d/%d stages complete (%d%%)", rs.Counts()[StatusCompleted], len(rs.Stages), rs.Percent)
	switch rs.Phase {
	case orchestrator.PhaseFailed:
		line += ": failed: " + rs.Error
	case orchestrator.PhaseSucceeded:
		line += ": done"
	}
	return line
}
