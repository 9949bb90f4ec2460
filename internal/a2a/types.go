// Package a2a is a small JSON-RPC over HTTP transport for the Agent2Agent
// protocol: enough of it to send a blocking message to a stage agent, poll or
// cancel its task, and read its agent card.
package a2a

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentCardPath is the well-known location of an agent's card.
const AgentCardPath = "/.well-known/agent-card.json"

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateRejected  TaskState = "rejected"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// Role identifies the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Task is the unit of work an agent performs for one message.
type Task struct {
	ID        string          `json:"id"`
	ContextID string          `json:"contextId"`
	Status    TaskStatus      `json:"status"`
	Artifacts []Artifact      `json:"artifacts,omitempty"`
	History   []Message       `json:"history,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Text joins the text parts of every artifact, in order.
func (t *Task) Text() string {
	var texts []string
	for _, a := range t.Artifacts {
		for _, p := range a.Parts {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

// StatusText returns the text of the status message, or "".
func (t *Task) StatusText() string {
	if t.Status.Message == nil {
		return ""
	}
	return t.Status.Message.Text()
}

// TaskStatus is the current state of a task and when it was entered.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is one turn of communication between client and agent.
type Message struct {
	MessageID string          `json:"messageId"`
	ContextID string          `json:"contextId,omitempty"`
	TaskID    string          `json:"taskId,omitempty"`
	Role      Role            `json:"role"`
	Parts     []Part          `json:"parts"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     parts,
	}
}

// Text joins the message's text parts with newlines.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// DecodeData unmarshals the first data part into v. It reports false when
// the message carries no data part.
func (m Message) DecodeData(v any) (bool, error) {
	for _, p := range m.Parts {
		if len(p.Data) == 0 {
			continue
		}
		if err := json.Unmarshal(p.Data, v); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}

// Part carries one piece of content. Exactly one of Text or Data is set.
type Part struct {
	Text      string          `json:"text,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TextPart creates a plain-text part.
func TextPart(text string) Part {
	return Part{Text: text, MediaType: "text/plain"}
}

// DataPart creates a part holding v as JSON.
func DataPart(v any) (Part, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Part{}, err
	}
	return Part{Data: data, MediaType: "application/json"}, nil
}

// Artifact is an output an agent produced for a task.
type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parts       []Part `json:"parts"`
}

// AgentCard is the self-describing manifest served at AgentCardPath.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Version            string            `json:"version"`
	URL                string            `json:"url"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Skills             []AgentSkill      `json:"skills"`
}

// AgentCapabilities declares optional protocol features.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentSkill is one capability advertised on a card.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// SendMessageRequest is the params object of message/send.
type SendMessageRequest struct {
	Message       Message            `json:"message"`
	Configuration *SendMessageConfig `json:"configuration,omitempty"`
}

// SendMessageConfig controls message handling.
type SendMessageConfig struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Blocking            bool     `json:"blocking"`
}

// GetTaskRequest is the params object of tasks/get.
type GetTaskRequest struct {
	ID string `json:"id"`
}

// CancelTaskRequest is the params object of tasks/cancel.
type CancelTaskRequest struct {
	ID string `json:"id"`
}
