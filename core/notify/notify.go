// Package notify defines the outbound notification dispatch boundary. The
// engine decides what to send and when; transport and delivery guarantees
// belong to the implementation behind Dispatcher.
package notify

import (
	"context"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
)

// Dispatcher hands notifications to the delivery collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, notifications []model.Notification) error
}

// NopDispatcher drops all notifications.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(context.Context, []model.Notification) error { return nil }

// LogDispatcher logs notifications instead of delivering them. Useful for
// dry runs and tests.
type LogDispatcher struct {
	Log logger.Logger
}

func (d LogDispatcher) Dispatch(_ context.Context, notifications []model.Notification) error {
	for _, n := range notifications {
		d.Log.Infof("notification %s -> %s %s (priority %s): %s",
			n.ID, n.RecipientType, n.RecipientID, n.Priority, n.Template.En)
	}
	return nil
}
