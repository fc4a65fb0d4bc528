package config

import "time"

// Application constants
const (
	// Application Info
	AppName     = "Lot Pulse"
	ServiceName = "lotpulse"

	// Server
	DefaultPort           = 8080
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultLogFile    = "lotpulse.log"

	// Ingestion
	DefaultEncoding       = "utf-8"
	DefaultMaxUploadBytes = 32 << 20 // 32MB
	CSVSeparator          = ';'

	// Reporting
	DefaultTopN = 5

	// Sessions
	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxSessions   = 256

	// Telemetry
	DefaultRuntimeInterval = 15 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Export file name prefix
	ExportCSVPrefix = "lotreport"
)
