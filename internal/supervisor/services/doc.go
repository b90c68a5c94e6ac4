// TrackGraph - Listening History Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackgraph

/*
Package services provides suture.Service wrappers for TrackGraph components
that do not speak suture's context-aware Serve pattern natively.

HTTPServerService adapts *http.Server. The prewarm worker pool in
internal/service already implements suture.Service and is added to the tree
directly.

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination
*/
package services
