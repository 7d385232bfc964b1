package emailsvc

import (
	"log"
	"sync"

	"github.com/eduflick/backend/core"
)

// NewService picks the EmailService for the configured provider. Providers without an API key fall back to the console.
func NewService(conf *core.Config, std *log.Logger, logger core.Logger) core.EmailService {
	switch conf.Email.Provider {
	case "sendgrid":
		if conf.Email.SendgridAPIKey != "" {
			return NewSendgridService(conf, logger)
		}
	case "resend":
		if conf.Email.ResendAPIKey != "" {
			return NewResendService(conf, logger)
		}
	}
	if conf.Email.Provider != "console" {
		logger.Warn("email provider " + conf.Email.Provider + " is not configured, printing emails to the console")
	}
	return NewConsoleService(conf, std)
}

// Waiter is implemented by every EmailService in this package.
type Waiter interface {
	// Wait blocks until every message handed to SendMessages so far has been sent or dropped.
	Wait()
}

// dispatcher runs sends in the background.
type dispatcher struct {
	pending sync.WaitGroup
}

func (d *dispatcher) dispatch(send func()) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		send()
	}()
}

func (d *dispatcher) Wait() { d.pending.Wait() }
