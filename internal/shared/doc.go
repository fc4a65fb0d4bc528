// Package shared holds helpers used across lotpulse packages.
//
// The testutil subpackage provides a capturing slog handler and order
// export fixtures for tests. It must not be imported from production code.
package shared
