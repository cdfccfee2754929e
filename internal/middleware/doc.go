// Package middleware holds the chi middleware of the volarb server: request
// ids, structured request logs, panic recovery, rate limiting, request
// deadlines, OpenTelemetry spans and metrics, and JSON body validation.
package middleware
