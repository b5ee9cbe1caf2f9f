// Package logging provides structured logging for the daemon.
//
// It is a thin wrapper over log/slog that fixes the handler choice to the
// logging config section (JSON or text, level filtering, stdout or stderr)
// and stamps every entry with the service name and build version. Each
// subsystem gets a child logger via With("component", ...), so a single
// grep for component=engine isolates the correlation engine's output.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("BlueZ connected", "adapter", "hci0")
//
// Never log secrets: the MQTT password and InfluxDB token must not appear
// in any entry.
package logging
