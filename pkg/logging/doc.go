// Package logging provides the subsystem-tagged logger used across pagecms.
//
// It is a thin layer over log/slog. Every entry carries a subsystem
// attribute so output can be filtered per component:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("ContentStore", "Loaded page %s", name)
//	logging.Debug("DeviceFlow", "Next poll in %s", interval)
//	logging.Error("Session", err, "Failed to save page %s", name)
//
// # Subsystems
//
//   - **ContentStore**: page reads and writes against the GitHub API
//   - **DeviceFlow**: device authorization and token polling
//   - **Credentials**: credential persistence
//   - **Session**: page lifecycle orchestration
//   - **Config**: configuration loading
//
// # Audit Logging
//
// Credential changes and device flow outcomes are recorded with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "credential_stored",
//	    Outcome:   "success",
//	    SessionID: logging.TruncateSessionID(sessionID),
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Token
// values are never logged.
package logging
