package platform

// Package platform contains filesystem glue around the artifact output
// directory: directory bootstrap, base-name sanitizing, prefix lookup of
// engine-produced files, and the stale-artifact sweep.
