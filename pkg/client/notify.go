package client

import "go.uber.org/zap"

// Notifier surfaces user-visible messages, e.g. as a toast.
type Notifier interface {
	Error(message string)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Error(string) {}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Error(message string) {
	if n.Logger != nil {
		n.Logger.Warn(message, zap.String("module", "notify"))
	}
}
