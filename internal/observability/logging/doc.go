// Package logging builds the process logger.
//
// Loggers write JSON (or text for local runs) to stdout at the level named by
// LOG_LEVEL. Records logged with a context carry the request id and the
// OpenTelemetry trace id found in it, so call sites only pass ctx.
//
//	slog.SetDefault(logging.NewLogger())
//	slog.InfoContext(ctx, "AI capability completed")
package logging
