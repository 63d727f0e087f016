package ctl

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
)

// DetectActor gathers host and user information for the daemon's command log.
func DetectActor() (*sentinel.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &sentinel.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
