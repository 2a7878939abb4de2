package cmd

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"cosmossdk.io/log"
)

// cmtLoggerAdapter satisfies CometBFT's libs/log.Logger interface by
// forwarding to a cosmossdk.io/log.Logger, so the ABCI server and the
// application log through the same sink and level.
type cmtLoggerAdapter struct{ l log.Logger }

func (a cmtLoggerAdapter) Debug(msg string, keyvals ...any) { a.l.Debug(msg, keyvals...) }
func (a cmtLoggerAdapter) Info(msg string, keyvals ...any)  { a.l.Info(msg, keyvals...) }
func (a cmtLoggerAdapter) Error(msg string, keyvals ...any) { a.l.Error(msg, keyvals...) }

func (a cmtLoggerAdapter) With(keyvals ...any) cmtlog.Logger {
	return cmtLoggerAdapter{a.l.With(keyvals...)}
}
