package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/withstack"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const otelName = "github.com/hyperledger-labs/yui-bridge-relayer"

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

func InitLogger(logLevel, format, output string, enableTelemetry bool) error {
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	case "null":
		writer = io.Discard
	default:
		return errors.New("invalid log output")
	}
	return InitLoggerWithWriter(logLevel, format, writer, enableTelemetry)
}

func InitLoggerWithWriter(logLevel, format string, writer io.Writer, enableTelemetry bool) error {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return errors.Wrapf(err, "invalid log level %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return errors.New("invalid log format")
	}

	if enableTelemetry {
		handler = slogmulti.Fanout(
			handler,
			otelslog.NewHandler(otelName, otelslog.WithSource(true)),
		)
	}

	relayLogger = &RelayLogger{
		slog.New(handler),
	}
	return nil
}

func GetLogger() *RelayLogger {
	if relayLogger == nil {
		// tests and library users may log before InitLogger
		return &RelayLogger{slog.Default()}
	}
	return relayLogger
}

func (rl *RelayLogger) log(logLevel slog.Level, skipCallDepth int, msg string, args ...any) {
	rl.logContext(context.Background(), logLevel, skipCallDepth+1, msg, args...)
}

func (rl *RelayLogger) logContext(ctx context.Context, logLevel slog.Level, skipCallDepth int, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !rl.Enabled(ctx, logLevel) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(2+skipCallDepth, pcs[:]) // skip [Callers, logContext]
	r := slog.NewRecord(time.Now(), logLevel, msg, pcs[0])
	r.Add(args...)
	_ = rl.Handler().Handle(ctx, r)
}

func withStackArgs(err error, otherArgs []any) []any {
	err = withstack.WithStackDepth(err, 2)
	args := []any{"error", err, "stack", fmt.Sprintf("%+v", err)}
	return append(args, otherArgs...)
}

// Error logs an error with its stack trace
func (rl *RelayLogger) Error(msg string, err error, otherArgs ...any) {
	rl.log(slog.LevelError, 1, msg, withStackArgs(err, otherArgs)...)
}

// ErrorContext logs an error with its stack trace
func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	rl.logContext(ctx, slog.LevelError, 1, msg, withStackArgs(err, otherArgs)...)
}

// Fatal logs an error and terminates the process
func (rl *RelayLogger) Fatal(msg string, err error, otherArgs ...any) {
	rl.log(slog.LevelError, 1, msg, withStackArgs(err, otherArgs)...)
	os.Exit(1)
}

func (rl *RelayLogger) WithChain(chainID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"chain_id", chainID,
		),
	}
}

func (rl *RelayLogger) WithChainPair(srcChainID, dstChainID string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"src_chain_id", srcChainID,
			"dst_chain_id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithBridge(bridge string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"bridge", bridge,
		),
	}
}

func (rl *RelayLogger) WithDirection(direction string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"direction", direction,
		),
	}
}

func (rl *RelayLogger) WithLane(lane string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"lane", lane,
		),
	}
}

func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return &RelayLogger{
		rl.With(
			"module", moduleName,
		),
	}
}
