// Package logger provides the structured logging interface used across redditsaver.
//
// It wraps zerolog. Console output is colorized and written to stderr; when a
// log file is configured every entry is also appended to it.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("account", "spez")
//	log.InfoWithFields("Number of items processed", map[string]interface{}{"processed": 237})
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to discard them.
package logger
