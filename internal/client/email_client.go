package client

import (
	"context"

	"github.com/vocalbooth/api/internal/model"
)

const emailFunction = "send-playback-email"

// EmailSender dispatches playback emails through the outbound email
// collaborator. The core only supplies parameters; delivery is external.
type EmailSender interface {
	SendPlaybackEmail(ctx context.Context, req *model.PlaybackEmailRequest) (*model.PlaybackEmailResponse, error)
}

// EmailClient implements EmailSender over the hosted-function channel.
type EmailClient struct {
	invoker FunctionInvoker
}

// NewEmailClient creates a new playback email client
func NewEmailClient(invoker FunctionInvoker) *EmailClient {
	return &EmailClient{invoker: invoker}
}

// SendPlaybackEmail dispatches one playback email and returns the
// collaborator's result.
func (c *EmailClient) SendPlaybackEmail(ctx context.Context, req *model.PlaybackEmailRequest) (*model.PlaybackEmailResponse, error) {
	payload := map[string]string{
		"email":    req.Email,
		"audioUrl": req.AudioURL,
		"songName": req.SongName,
	}
	if req.CustomerName != "" {
		payload["customerName"] = req.CustomerName
	}

	var result model.PlaybackEmailResponse
	if err := c.invoker.Invoke(ctx, emailFunction, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
