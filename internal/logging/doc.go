// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package logging provides the zerolog-based logger shared by every TrackGraph
component.

	logging.Init(logging.Config{Level: "info", Format: "json"})
	logging.Info().Int64("version", v).Msg("Dataset replaced")
	logging.Ctx(ctx).Warn().Err(err).Msg("Catalog fetch failed")

Request handlers attach a request id to the context (ContextWithRequestID);
Ctx adds it to every entry. Background work such as prewarming uses
ContextWithNewCorrelationID so related entries can be grouped.

The slog adapter lets sutureslog report supervisor events through the same
logger.

Environment Variables (read by internal/config):
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json, console (default: json)
  - LOG_CALLER: include caller file:line (default: false)
*/
package logging
