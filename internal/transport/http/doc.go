// Package http implements the JSON API over the arbitrage services.
//
// Handlers stay thin: they decode and validate the request body, call a
// service and render the result with chi/render. Every failure goes through
// the shared errors.ErrorHandler so clients always receive RFC 7807
// problem details.
//
// Routes, relative to the /api/v1 mount point:
//
//	POST /arb/mono        single-point arbitrage level of a pair
//	POST /arb/poly        full window sweep, streamed over /ws
//	POST /arb/tails       tail asymmetry of the sweep distribution
//	POST /arb/dispersion  dispersion difference series
//	POST /arb/render      per-asset dispersion series for charting
//	GET  /arb/reducers    reducer names and analysis defaults
package http
