// Package app wires configuration, telemetry, the websocket hub, services
// and the HTTP router into a runnable server.
//
// Startup order:
//
//	1. Load configuration (defaults, YAML file, VOLARB_* environment)
//	2. Initialize the slog logger and OpenTelemetry providers
//	3. Start the websocket hub and build the services
//	4. Mount handlers behind the middleware chain
//	5. Serve until SIGINT or SIGTERM, then shut down gracefully
//
// Usage:
//
//	application, err := app.NewApplication("configs/volarb.yaml")
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
