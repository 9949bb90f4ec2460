package a2a

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStore_CreateAndGet(t *testing.T) {
	store := NewTaskStore()
	msg := NewMessage(RoleUser, TextPart("write about sleep"))
	msg.ContextID = "ctx-1"

	task := store.Create(msg)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "ctx-1", task.ContextID)
	assert.Equal(t, TaskStateSubmitted, task.Status.State)
	require.Len(t, task.History, 1)
	assert.Equal(t, "write about sleep", task.History[0].Text())

	got, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got)
	assert.Equal(t, 1, store.Len())
}

func TestTaskStore_CreateAssignsContextID(t *testing.T) {
	store := NewTaskStore()
	a := store.Create(NewMessage(RoleUser, TextPart("a")))
	b := store.Create(NewMessage(RoleUser, TextPart("b")))
	assert.NotEmpty(t, a.ContextID)
	assert.NotEqual(t, a.ContextID, b.ContextID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTaskStore_GetUnknown(t *testing.T) {
	_, err := NewTaskStore().Get("nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskStore_TransitionLifecycle(t *testing.T) {
	store := NewTaskStore()
	task := store.Create(NewMessage(RoleUser, TextPart("go")))

	working, err := store.Transition(task.ID, TaskStateWorking, nil)
	require.NoError(t, err)
	assert.Equal(t, TaskStateWorking, working.Status.State)

	reply := NewMessage(RoleAgent, TextPart("done"))
	done, err := store.Transition(task.ID, TaskStateCompleted, &reply, Artifact{
		ArtifactID: "art-1",
		Name:       "writer-output",
		Parts:      []Part{TextPart("the draft")},
	})
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, done.Status.State)
	assert.Equal(t, "done", done.StatusText())
	assert.Equal(t, task.ID, done.Status.Message.TaskID)
	assert.Equal(t, "the draft", done.Text())
	assert.Len(t, done.History, 2)
}

func TestTaskStore_TerminalIsFinal(t *testing.T) {
	store := NewTaskStore()
	task := store.Create(NewMessage(RoleUser, TextPart("go")))
	_, err := store.Transition(task.ID, TaskStateFailed, nil)
	require.NoError(t, err)

	_, err = store.Transition(task.ID, TaskStateCompleted, nil)
	require.ErrorIs(t, err, ErrTaskNotCancelable)

	got, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskStateFailed, got.Status.State)
}

func TestTaskStore_TransitionUnknown(t *testing.T) {
	_, err := NewTaskStore().Transition("missing", TaskStateWorking, nil)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskStore_ReturnsCopies(t *testing.T) {
	store := NewTaskStore()
	task := store.Create(NewMessage(RoleUser, TextPart("original")))

	task.History[0].Parts[0].Text = "tampered"
	got, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.History[0].Parts[0].Text)
}

func TestTaskStore_ConcurrentAccess(t *testing.T) {
	store := NewTaskStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := store.Create(NewMessage(RoleUser, TextPart("x")))
			_, _ = store.Transition(task.ID, TaskStateWorking, nil)
			_, _ = store.Get(task.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}

func TestTaskStore_EvictsOldestTerminalOverCap(t *testing.T) {
	store := NewTaskStore(WithMaxTasks(2))
	a := store.Create(NewMessage(RoleUser, TextPart("a")))
	b := store.Create(NewMessage(RoleUser, TextPart("b")))
	_, err := store.Transition(a.ID, TaskStateCompleted, nil)
	require.NoError(t, err)
	_, err = store.Transition(b.ID, TaskStateCompleted, nil)
	require.NoError(t, err)

	c := store.Create(NewMessage(RoleUser, TextPart("c")))
	assert.Equal(t, 2, store.Len())
	_, err = store.Get(a.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = store.Get(b.ID)
	assert.NoError(t, err)
	_, err = store.Get(c.ID)
	assert.NoError(t, err)
}

func TestTaskStore_KeepsLiveTasksOverCap(t *testing.T) {
	store := NewTaskStore(WithMaxTasks(1))
	for i := 0; i < 3; i++ {
		store.Create(NewMessage(RoleUser, TextPart("x")))
	}
	assert.Equal(t, 3, store.Len())
}

func TestTaskStore_DropsExpiredTerminalTasks(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewTaskStore(WithRetention(time.Minute))
	store.now = func() time.Time { return now }

	done := store.Create(NewMessage(RoleUser, TextPart("done")))
	_, err := store.Transition(done.ID, TaskStateFailed, nil)
	require.NoError(t, err)
	working := store.Create(NewMessage(RoleUser, TextPart("working")))
	_, err = store.Transition(working.ID, TaskStateWorking, nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	store.Create(NewMessage(RoleUser, TextPart("next")))

	_, err = store.Get(done.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = store.Get(working.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}
