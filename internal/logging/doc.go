// Package logging provides the diagnostic logger used by smollog itself.
//
// Records produced by a session are the product; this package is for the
// library's own operational messages: where a run is being written, a store
// that failed, a result transform that was recovered, a record file the
// exporter had to skip. It wraps Go's log/slog with a JSON handler so that
// diagnostics stay machine-readable and never mix with the colored console
// mirror.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(".logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("session started", "run_dir", runDir)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	runLogger := logger.WithSession(id).WithRun(runDir)
//	runLogger.WithLabel("fetchUser").Warn("transform failed", "error", err)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"transform failed","session_id":"...","run_dir":"...","label":"fetchUser","error":"..."}
//
// # Testing
//
// [NopLogger] discards everything; [NewWriterLogger] captures diagnostics in
// a buffer for assertions.
package logging
