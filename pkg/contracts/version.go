package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version of the lotpulse binaries
	Version = "0.3.0"

	// DataFormatVersion changes whenever the columns of an exported view change
	DataFormatVersion = "v1"

	// APIVersion is the path version of the HTTP API
	APIVersion = "v1"
)

// Set with -ldflags "-X lotpulse/pkg/contracts.BuildTime=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// VersionInfo describes the running build
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GitBranch    string `json:"git_branch"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GitBranch:    GitBranch,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// GetVersionString returns "Lot Pulse v<version>"
func GetVersionString() string {
	return "Lot Pulse v" + Version
}

// GetFullVersionString is the one line printed by lotreport -version
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s (commit %s, built %s, %s %s/%s)",
		GetVersionString(), info.GitCommit, info.BuildTime, info.GoVersion, info.OS, info.Architecture)
}
