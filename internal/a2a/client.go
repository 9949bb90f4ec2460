package a2a

import "context"

// Client talks to remote stage agents.
type Client interface {
	// SendMessage sends a message and returns the resulting task. With a
	// blocking configuration the agent answers once the task is terminal.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask fetches a task by ID.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// CancelTask cancels a task that has not finished.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the agent card from baseURL.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}
