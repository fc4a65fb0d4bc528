// Package app wires the lot report service together and manages its
// lifecycle: configuration, logging, telemetry, the session store, the
// services, the chi router and the HTTP server.
//
// # Initialization Flow
//
//  1. Load configuration (defaults, YAML, .env, environment)
//  2. Initialize the slog logger and OpenTelemetry providers
//  3. Create the in-memory session store and the services
//  4. Build the middleware chain and mount the API under /api
//  5. Create the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of ctx. In-flight
// requests are given ShutdownTimeout to finish, the session sweeper and the
// runtime metrics sampler stop, and telemetry providers are flushed.
// Sessions live in memory only and are dropped on shutdown.
//
// The package never calls os.Exit; errors are returned to main.
package app
