package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer writes one debug record per scope or task event.
type Observer struct {
	log *zap.Logger
}

func NewObserver(l *zap.Logger) *Observer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Observer{log: l.Named("scope")}
}

func (o *Observer) ScopeCreated(context.Context) { o.log.Debug("scope created") }

func (o *Observer) ScopeCancelled(_ context.Context, cause error) {
	o.log.Debug("scope cancelled", zap.NamedError("cause", cause))
}

func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.log.Debug("scope joined", zap.Duration("wait", wait))
}

func (o *Observer) TaskStarted(context.Context) { o.log.Debug("task started") }

func (o *Observer) TaskFinished(_ context.Context, dur time.Duration, err error, panicked bool) {
	if !o.log.Core().Enabled(zap.DebugLevel) {
		return
	}
	o.log.Debug("task finished",
		zap.Duration("duration", dur),
		zap.Bool("panicked", panicked),
		zap.Error(err),
	)
}
