package services

import (
	"errors"

	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const MessageSessionExpired = "Session expired, please log in again"

type userMessager interface {
	UserMessage() string
}

// Describe returns the message to show a user for err: the backend's own
// detail when there is one, fallback otherwise.
func Describe(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ports.ErrUnauthorized) {
		return MessageSessionExpired
	}
	var m userMessager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
