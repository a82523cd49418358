package echo

import (
	"context"

	"go.uber.org/zap"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:6142"

// ListenAndServe binds address and serves echo connections until ctx is
// cancelled. A bind failure is returned as *BindError before anything is
// logged about listening.
func ListenAndServe(ctx context.Context, address string, optFns ...Option) error {
	l, err := Bind(ctx, address)
	if err != nil {
		return err
	}
	o := buildOptions(optFns)
	o.logger.Info("Listening on: "+l.Addr().String(), zap.Stringer("addr", l.Addr()))
	return NewSupervisor(l, optFns...).Serve(ctx)
}
