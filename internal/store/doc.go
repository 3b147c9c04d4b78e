package store

// Package store holds the two shared mutable resources of the service: the
// job store and the session cache. Every access goes through synchronized
// accessors under a single coarse lock per store, and reads hand out value
// copies so callers can never observe a record mid-mutation.
