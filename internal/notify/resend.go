package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
)

// emailSender is the part of the Resend client used here.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier sends messages through the Resend API.
type ResendNotifier struct {
	emails  emailSender
	timeout time.Duration
}

func NewResendNotifier(apiKey string, timeout time.Duration) *ResendNotifier {
	client := resend.NewClient(apiKey)
	return &ResendNotifier{emails: client.Emails, timeout: timeout}
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}

	if _, err := n.emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
