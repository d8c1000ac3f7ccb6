// Package inline runs batch handlers in-process. Demo mode uses it so the
// whole flow works without a broker or a separate worker binary.
package inline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type Queue struct {
	logger *slog.Logger

	mu      sync.RWMutex
	handler func(context.Context, string) error
}

func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger}
}

// Bind sets the handler every published message is dispatched to.
func (q *Queue) Bind(handler func(context.Context, string) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// PublishAnalyzeRequested dispatches asynchronously, mirroring broker
// semantics: the caller gets an ack, not a result.
func (q *Queue) PublishAnalyzeRequested(ctx context.Context, inspectionID string) error {
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("inline queue: no handler bound")
	}

	go func() {
		if err := handler(context.WithoutCancel(ctx), inspectionID); err != nil {
			q.logger.Error("batch_handler_failed", "inspection_id", inspectionID, "error", err)
		}
	}()
	return nil
}

func (q *Queue) SubscribeAnalyzeRequested(ctx context.Context, handler func(context.Context, string) error) error {
	q.Bind(handler)
	<-ctx.Done()
	return nil
}
