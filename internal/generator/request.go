// Package generator provides the generation services a pipeline runs
// against: a remote one that sends each stage to an A2A agent, and an
// offline template one.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Request is the structured payload sent alongside the prompt text.
type Request struct {
	Stage   orchestrator.StageID `json:"stage"`
	Topic   string               `json:"topic"`
	Context string               `json:"context"`
}

// Validate checks the stage identity and topic.
func (r Request) Validate() error {
	if !r.Stage.Valid() {
		return fmt.Errorf("generator: %w: %q", orchestrator.ErrUnknownStage, r.Stage)
	}
	if strings.TrimSpace(r.Topic) == "" {
		return orchestrator.ErrEmptyTopic
	}
	return nil
}

// NewMessage builds the user message for req: the prompt as a text part and
// req itself as a data part.
func NewMessage(req Request, prompt string) (a2a.Message, error) {
	data, err := a2a.DataPart(req)
	if err != nil {
		return a2a.Message{}, fmt.Errorf("generator: encode request: %w", err)
	}
	return a2a.NewMessage(a2a.RoleUser, a2a.TextPart(prompt), data), nil
}

// DecodeRequest extracts and validates the Request carried by msg.
func DecodeRequest(msg a2a.Message) (Request, error) {
	var req Request
	ok, err := msg.DecodeData(&req)
	if err != nil {
		return Request{}, fmt.Errorf("generator: decode request: %w", err)
	}
	if !ok {
		return Request{}, errors.New("generator: message carries no request data")
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
