package playback

// Package playback drives a single external media engine across three
// mutually exclusive output surfaces (primary, mini and full-screen). Session
// is the state machine callers use; EngineHandle owns the engine instance and
// Router migrates its video output between surfaces. Status is polled on the
// UI-affine context through a Scheduler.
