package agent

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/generator"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

func TestStageCard(t *testing.T) {
	def, _ := orchestrator.DefaultRegistry().Lookup(orchestrator.StageSEO)
	card := StageCard(def)

	assert.Equal(t, "zappy-seo", card.Name)
	assert.Equal(t, "Search Optimization", card.Description)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "seo", card.Skills[0].ID)
	assert.Equal(t, "SEO", card.Skills[0].Name)
}

func TestStageAgent_ServesItsStage(t *testing.T) {
	def, _ := orchestrator.DefaultRegistry().Lookup(orchestrator.StageWriter)
	gen := orchestrator.GeneratorFunc(func(_ context.Context, stage orchestrator.StageID, topic, contextText string) (string, error) {
		return string(stage) + "|" + topic + "|" + contextText, nil
	})
	ag := NewStageAgent(def, gen)
	url := serve(t, ag.BaseAgent)
	assert.Equal(t, orchestrator.StageWriter, ag.Stage())

	msg, err := generator.NewMessage(generator.Request{Stage: orchestrator.StageWriter, Topic: "sleep", Context: "ctx"}, "prompt")
	require.NoError(t, err)

	task, err := a2a.NewHTTPClient().SendMessage(context.Background(), url, a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Equal(t, "writer|sleep|ctx", task.Text())
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "writer-output", task.Artifacts[0].Name)
}

func TestStageAgent_RejectsOtherStage(t *testing.T) {
	def, _ := orchestrator.DefaultRegistry().Lookup(orchestrator.StageWriter)
	ag := NewStageAgent(def, generator.NewTemplate(nil))

	msg, err := generator.NewMessage(generator.Request{Stage: orchestrator.StageEditor, Topic: "sleep"}, "")
	require.NoError(t, err)
	task, err := ag.HandleSendMessage(context.Background(), a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateFailed, task.Status.State)
	assert.Contains(t, task.StatusText(), `cannot serve stage "editor"`)
}

func TestStageAgent_GeneratorErrorVerbatim(t *testing.T) {
	def, _ := orchestrator.DefaultRegistry().Lookup(orchestrator.StageResearcher)
	ag := NewStageAgent(def, orchestrator.GeneratorFunc(func(context.Context, orchestrator.StageID, string, string) (string, error) {
		return "", errors.New("quota exceeded")
	}))

	msg, err := generator.NewMessage(generator.Request{Stage: orchestrator.StageResearcher, Topic: "sleep"}, "")
	require.NoError(t, err)
	task, err := ag.HandleSendMessage(context.Background(), a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "quota exceeded", task.StatusText())
}

func TestRegistry_Spawn(t *testing.T) {
	reg := NewRegistry(nil, generator.NewTemplate(nil), nil)

	for _, id := range orchestrator.StageIDs() {
		ag, err := reg.Spawn(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, ag.Stage())
		assert.NotEmpty(t, ag.Card().Skills)
	}

	_, err := reg.Spawn("illustrator")
	assert.ErrorIs(t, err, orchestrator.ErrUnknownStage)
}

func TestRegistry_SpawnAllEphemeralPorts(t *testing.T) {
	reg := NewRegistry(nil, generator.NewTemplate(nil), nil)
	ctx := context.Background()

	agents, err := reg.SpawnAll(ctx, "127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.StopAll(ctx) })
	require.Len(t, agents, 6)

	eps := reg.Endpoints()
	assert.Len(t, eps, 6)
	client := a2a.NewHTTPClient()
	for _, ag := range agents {
		assert.Equal(t, ag.URL(), eps[ag.Stage()])
		card, err := client.DiscoverAgent(ctx, ag.URL())
		require.NoError(t, err)
		assert.Equal(t, "zappy-"+string(ag.Stage()), card.Name)
	}
}

func TestRegistry_SpawnAllPortConflictStopsStarted(t *testing.T) {
	// Occupy a port, then ask for a block that contains it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	reg := NewRegistry(nil, generator.NewTemplate(nil), nil)
	_, err = reg.SpawnAll(context.Background(), "127.0.0.1", busy-1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent: start")
	assert.Empty(t, reg.Endpoints())
}

func TestRegistry_StopAllEmpty(t *testing.T) {
	assert.NoError(t, NewRegistry(nil, nil, nil).StopAll(context.Background()))
}

// End to end: a pipeline running against locally hosted agents over HTTP.
func TestRegistry_PipelineOverAgents(t *testing.T) {
	reg := NewRegistry(nil, generator.NewTemplate(nil), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := reg.SpawnAll(ctx, "127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.StopAll(context.Background()) })

	gen, mode, err := generator.Select(ctx, generator.SelectOptions{Endpoints: reg.Endpoints()})
	require.NoError(t, err)
	assert.Equal(t, generator.ModeRemote, mode)

	p := orchestrator.NewPipeline(gen)
	defer p.Close()

	snap, err := p.Run(ctx, "blood pressure")
	require.NoError(t, err)
	assert.Len(t, snap.Completed, 6)
	assert.Contains(t, snap.FinalOutput, "# Blood Pressure")
}
