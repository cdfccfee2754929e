// Package shared holds code used across volarb packages that belongs to no
// single layer. Its testutil subpackage provides a log-capturing slog handler
// and deterministic price fixtures for tests.
package shared
