// Package config loads the settings of the BOM manager.
//
// Values come from environment variables, optionally seeded from a .env file,
// with defaults taken from the `default` struct tags of each section.
// Nested keys map to upper-case variables joined by underscores, so
// database.name is read from DATABASE_NAME.
//
// # Configuration Structure
//
//   - Log: level and encoding
//   - Database: driver and connection details (sqlite file by default)
//   - Storage: MinIO/S3 bucket for published purchase lists
//   - Import: scheme and supplier format overrides
//   - Reconcile: attribute conflict policies
//   - Purchase: output directory and unknown shop marker
//   - Metrics: Prometheus textfile path
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	db, err := database.Connect(cfg.Database)
package config
