package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/resend/resend-go/v3"

	"github.com/eduflick/backend/core"
)

const resendTimeout = 20 * time.Second

type resendService struct {
	dispatcher
	client     *resend.Client
	from       string
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*resendService)(nil)

func NewResendService(conf *core.Config, logger core.Logger) core.EmailService {
	from := defaultFrom(conf)
	return &resendService{
		client:     resend.NewClient(conf.Email.ResendAPIKey),
		from:       from.String(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *resendService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		svc.dispatch(func() {
			if msg.HasRecipients() && msg.HasContent() {
				svc.send(*msg)
			}
		})
	}
}

func (svc *resendService) prepare(msg core.EmailMessage) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    svc.from,
		To:      addressStrings(msg.To),
		Cc:      addressStrings(msg.Cc),
		Bcc:     addressStrings(msg.Bcc),
		Subject: svc.subjPrefix + msg.Subject,
		Text:    msg.TextContent,
		Html:    msg.HTMLContent,
	}
}

func (svc *resendService) send(msg core.EmailMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
	defer cancel()

	if _, err := svc.client.Emails.SendWithContext(ctx, svc.prepare(msg)); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	}
}

func addressStrings(addrs []mail.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
