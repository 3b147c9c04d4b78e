package download

// Package download implements the core orchestration pipeline: synchronous
// pool-offloaded metadata extraction into the session cache, and asynchronous
// download jobs that move through queued -> downloading -> completed/failed
// while a worker drives the engine and streams progress into the job store.
