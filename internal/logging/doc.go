// Package logging provides structured logging for the aodb engine.
//
// The Logger interface takes a message plus alternating key-value pairs and
// is implemented on top of zerolog:
//
//	log, closer := logging.New(logging.Config{Level: "debug", Format: "json"})
//	defer closer.Close()
//	log.Info("store opened", "path", path, "size", size)
//
// Text format renders zerolog console lines, JSON format one object per
// line. NewNop returns a logger that discards everything and is the default
// for embedded use and tests.
package logging
