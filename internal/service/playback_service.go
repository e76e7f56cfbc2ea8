package service

import (
	"context"
	"fmt"
	"log"

	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
)

// PlaybackService dispatches playback emails through the external email
// collaborator.
type PlaybackService struct {
	email client.EmailSender
}

func NewPlaybackService(email client.EmailSender) *PlaybackService {
	return &PlaybackService{email: email}
}

// SendEmail dispatches one playback email. The collaborator's failure
// message is surfaced verbatim.
func (s *PlaybackService) SendEmail(ctx context.Context, req *model.PlaybackEmailRequest) (*model.PlaybackEmailResponse, error) {
	resp, err := s.email.SendPlaybackEmail(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("email dispatch reported failure")
	}

	log.Printf("[Playback] email sent to %s (message=%s)", req.Email, resp.MessageID)
	return resp, nil
}
