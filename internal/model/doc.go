package model

// Package model defines domain data structures shared by the download queue,
// the format catalog and the UI: job records, format options, resolved video
// info and status enums. Records are plain values with explicit state
// transitions performed by their owners.
