// Package log provides a simple, leveled logging interface for careergraph.
//
// The graph executor, the session orchestrator and the checkpoint stores log
// through the Logger interface. By default they use the package-level logger
// returned by GetDefaultLogger, a DefaultLogger at info level writing to
// stderr.
//
// # Log Levels
//
// The package supports five log levels, in order of increasing severity:
//
//   - LogLevelDebug: node starts, routes and fan-out dispatch
//   - LogLevelInfo: phase boundaries and checkpoint ids
//   - LogLevelWarn: degraded nodes
//   - LogLevelError: aborted runs and failed fallbacks
//   - LogLevelNone: disables all logging output
//
// ParseLevel converts configuration strings to a LogLevel.
//
// # Example Usage
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("checkpoint %s stored", id)
//
//	// Route engine logs to a file
//	file, err := os.OpenFile("careergraph.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
//	if err != nil {
//		return err
//	}
//	defer file.Close()
//	log.SetDefaultLogger(log.NewCustomLogger(file, log.LogLevelDebug))
//
// # golog Integration
//
// GologLogger wraps a github.com/kataras/golog logger. The command line tool
// uses it for colored, leveled output:
//
//	glogger := golog.New()
//	glogger.SetPrefix("[MyApp] ")
//
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LogLevelDebug)
//	logger.Debug("Debug information")
//
// # Thread Safety
//
// Both implementations are safe for concurrent use; fan-out branches log from
// their own goroutines. SetDefaultLogger may be called while graphs run.
package log
