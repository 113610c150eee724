package bus

import (
	"context"

	"github.com/yungbote/coursegen-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.RunUpdate) error
	// StartForwarder delivers every published update to onMsg until ctx ends.
	StartForwarder(ctx context.Context, onMsg func(m realtime.RunUpdate)) error
	Close() error
}
