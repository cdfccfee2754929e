// Package services sits between the HTTP handlers and the volarb analyses.
//
// ArbitrageService turns request parameters into a configured
// volarb.Analyzer, runs the requested analysis and streams sweep progress
// to a ProgressPublisher (the websocket hub in production). HealthService
// reports liveness, readiness and build information.
//
// Services hold no per-request state and are safe for concurrent use.
package services
