// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance for interactive (console) and
// machine-read (json) use.
//
// # Run Correlation
//
// Every command invocation is a single batch run. WithRun attaches a command
// name and a random run_id to the logger, so all entries of one import,
// commit or purchase run can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log, runID := logger.WithRun(log, "import")
//	log.Info("Import started")
package logger
