package events

import (
	"context"

	"github.com/ethiapath/bagcamp/internal/core"
)

var _ core.DownloadRecorder = (*NoopRecorder)(nil)

// NoopRecorder discards all events.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) Record(_ context.Context, _ core.DownloadEvent) error {
	return nil
}

func (n *NoopRecorder) Close() error {
	return nil
}
