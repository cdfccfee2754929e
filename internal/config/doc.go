// Package config provides centralized configuration management for volarb.
// It loads defaults, an optional YAML file and environment variables, and
// validates the result before anything else starts.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern VOLARB_<SECTION>_<KEY>:
//
//	VOLARB_ANALYSIS_REDUCER=kurt
//	VOLARB_ANALYSIS_WORKERS=4
//	VOLARB_ANALYSIS_LEVERAGE=SPXL:3,TQQQ:3
//	VOLARB_LOGGING_LEVEL=debug
//	VOLARB_SERVER_PORT=9090
//
// # Validation
//
// Every field carries go-playground/validator tags. Load fails when a
// reducer name is unknown, the tail fraction is outside (0, 0.5], the
// normalization bounds are inverted, or a leverage factor is not positive.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    slog.Error("Failed to load configuration", "error", err)
//	    os.Exit(1)
//	}
//
// # Testing
//
// Use config.Default() for a fully populated configuration that needs no
// environment or files.
package config
