package model

// Package model defines domain data structures shared across the service:
// extracted video metadata, cached sessions, download jobs, and status enums.
// Structures are designed for direct JSON rendering and explicit state
// transitions.
