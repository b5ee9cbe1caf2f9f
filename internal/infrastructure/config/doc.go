// Package config loads and validates the podpilotd configuration.
//
// Loading is layered: hardcoded defaults, then the YAML file, then
// PODPILOT_* environment variables, then validation. The defaults are a
// working minimal daemon (pairing watch plus discovery, every backend
// disabled), so an empty file is valid.
//
// Secrets such as the MQTT password and InfluxDB token belong in the
// environment, not the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bluetooth.Adapter)
package config
