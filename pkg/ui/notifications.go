package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier reports the end of long-running commands on the console and,
// where supported, as a desktop notification
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. Other platforms
// get console output only.
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return NewNotifierWithSender(&LinuxNotificationSender{})
	case "darwin":
		return NewNotifierWithSender(&MacOSNotificationSender{})
	default:
		return NewNotifierWithSender(nil)
	}
}

// NewNotifierWithSender uses sender; nil disables desktop notifications
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// SendSuccess prints and sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	write(false, fmt.Sprintf("\n%s: %s\n", Green(title), Green(message)))
	n.send(title, message)
}

// SendError prints and sends an error notification
func (n *Notifier) SendError(title, message string) {
	write(true, fmt.Sprintf("\n%s: %s\n", Red(title), Red(message)))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// notifications are best effort
		_ = n.sender.Send(title, message)
	}
}
