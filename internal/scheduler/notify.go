package scheduler

import (
	"fmt"

	"github.com/gen2brain/beeep"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, body string) error
}

// DesktopNotifier sends notifications through the platform's notification
// service.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, body string) error {
	return SendNotification(title, body)
}

func SendNotification(title, body string) error {
	if err := beeep.Notify(title, body, ""); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}
