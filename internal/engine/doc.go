package engine

// Package engine adapts the external yt-dlp extraction/transcoding engine.
// It probes source URLs for metadata and available renditions, runs
// download/convert invocations with a progress callback, and derives the
// client-facing format list from the engine's raw rendition data.
