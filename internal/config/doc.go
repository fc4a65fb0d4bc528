// Package config provides centralized configuration management for lotpulse.
// It loads configuration from several sources, validates it and exposes a
// type-safe API for the rest of the application.
//
// # Configuration Sources
//
// Sources in increasing order of precedence:
//
//  1. Default values (Default)
//  2. A YAML file (config.yaml, configs/config.yaml or LOTPULSE_CONFIG_FILE)
//  3. A .env file in the working directory
//  4. Environment variables
//
// # Environment Variables
//
// All environment variables use the LOTPULSE_ prefix followed by the section:
//
//	LOTPULSE_SERVER_PORT=8080
//	LOTPULSE_INGEST_ENCODING=windows-1252
//	LOTPULSE_INGEST_DAY_FIRST=true
//	LOTPULSE_REPORT_TOP_N=5
//	LOTPULSE_SESSION_TTL=2h
//	LOTPULSE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Path Management
//
// Directories are resolved relative to the executable, never the working directory:
//
//	paths, _ := cfg.ResolvePaths()
//	out := paths.GetExportPath("lotreport.xlsx")
package config
