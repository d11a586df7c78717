package main

import (
	"context"
	"log"

	authcore "github.com/fintrackr/authcore"
)

// notifierFor selects the outbound delivery adapter. The service ships with
// a log adapter (development) and a noop; production deployments plug a real
// mail provider behind the authcore.Notifier interface.
func notifierFor(cfg *config) authcore.Notifier {
	switch cfg.Notifier {
	case "noop":
		return authcore.NoOpNotifier{}
	default:
		return logNotifier{}
	}
}

// logNotifier records that a message would have been sent. It deliberately
// never logs the params: they carry live codes and reset tokens.
type logNotifier struct{}

func (logNotifier) Send(_ context.Context, msg authcore.Message) error {
	log.Printf("authd: notify kind=%s user=%s email=%s", msg.Kind, msg.UserID, msg.Email)
	return nil
}
