// Package websocket streams sweep events to browser clients.
//
// A Hub owns the set of connected clients and fans out JSON messages of the
// form {"type": ..., "data": ..., "timestamp": ..., "trace_id": ...}. The
// arbitrage service publishes one "sweep:progress" message per evaluated
// window and a final "sweep:complete" or "sweep:error". Clients that cannot
// keep up are disconnected rather than slowing the sweep.
package websocket
