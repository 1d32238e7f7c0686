// Package trace records what descriptor generation is doing.
//
// Spans mark the driver, each translation unit and, at the detail level,
// every descriptor build. Events go to a stream (text or NDJSON), to an
// in-memory ring that can be dumped after a failure, or to both.
//
// Enable it from the command line:
//
//	rtgen build --trace=- --trace-level=detail units/*.toml
//
// Levels: off, error, phase (driver and units), detail (descriptors) and
// debug (everything, including point events).
package trace
