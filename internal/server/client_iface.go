package server

import (
	"context"

	fpclient "github.com/tinkerloft/formpilot/internal/client"
	"github.com/tinkerloft/formpilot/internal/model"
)

// SessionClient is the interface the server uses to interact with Temporal.
// *client.Client satisfies this interface.
type SessionClient interface {
	ListSessions(ctx context.Context, statusFilter string, limit int) ([]fpclient.WorkflowInfo, error)
	StartSession(ctx context.Context, input model.SessionInput) (string, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*model.SessionStatus, error)
	AnswerQuestion(ctx context.Context, sessionID string, index int, answer string) error
	CancelSession(ctx context.Context, sessionID string) error
	Close()
}

// Classifier classifies question text for the classify endpoint.
type Classifier interface {
	Classify(text string) model.Classification
}
