/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package xfrcore

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging points the standard logger at a rotating file sink,
// grounded on tdns/logging.go's SetupLogging. A transfer/apply engine
// is normally run as a long-lived daemon process, so a log file that
// never rotates is not an option the way it might be for a one-shot
// CLI invocation.
func SetupLogging(logfile string) error {
	log.SetFlags(log.Lshortfile | log.Ltime)
	if logfile == "" {
		return newErr(BadArgument, "log file path not specified")
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	})
	return nil
}

// SetupCliLogging configures default-vs-verbose log formatting for
// command-line tools built on this package, grounded on
// tdns/logging.go's SetupCliLogging.
func SetupCliLogging(verbose, debug bool) {
	if verbose || debug {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
