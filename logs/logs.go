// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs wires every ledger subsystem to a shared btclog backend with
// rotating log files, following the subsystem-tag convention the rest of the
// module's packages depend on (each package holds its own `log` package-level
// variable obtained from Get).
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	if initiated {
		os.Stdout.Write(p)
		LogRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all
// subsystem loggers created from it write to the backend. Loggers must not be
// used before the log rotator has been initialized with a log file; call
// InitLogRotator early during application startup.
var (
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is the rotating log file output. It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	ledgLog = backendLog.Logger("LEDG")
	utxoLog = backendLog.Logger("UTXO")
	mpolLog = backendLog.Logger("MPOL")
	vldtLog = backendLog.Logger("VLDT")
	minrLog = backendLog.Logger("MINR")
	chanLog = backendLog.Logger("CHAN")
	gnssLog = backendLog.Logger("GNSS")
	cnfgLog = backendLog.Logger("CNFG")
	stixLog = backendLog.Logger("STIX")

	initiated = false
)

// SubsystemTags is an enum of all subsystem tags recognized by the ledger.
var SubsystemTags = struct {
	LEDG,
	UTXO,
	MPOL,
	VLDT,
	MINR,
	CHAN,
	GNSS,
	CNFG,
	STIX string
}{
	LEDG: "LEDG",
	UTXO: "UTXO",
	MPOL: "MPOL",
	VLDT: "VLDT",
	MINR: "MINR",
	CHAN: "CHAN",
	GNSS: "GNSS",
	CNFG: "CNFG",
	STIX: "STIX",
}

var subsystemLoggers = map[string]btclog.Logger{
	SubsystemTags.LEDG: ledgLog,
	SubsystemTags.UTXO: utxoLog,
	SubsystemTags.MPOL: mpolLog,
	SubsystemTags.VLDT: vldtLog,
	SubsystemTags.MINR: minrLog,
	SubsystemTags.CHAN: chanLog,
	SubsystemTags.GNSS: gnssLog,
	SubsystemTags.CNFG: cnfgLog,
	SubsystemTags.STIX: stixLog,
}

// InitLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory. It must be called before the
// package-global log variables are used for output to actually appear.
func InitLogRotator(logFile string) {
	initiated = true
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %s\n", err)
		os.Exit(1)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %s\n", err)
		os.Exit(1)
	}
	LogRotator = r
}

// SetLogLevel sets the logging level for the provided subsystem. Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// Get returns the logger registered for a specific subsystem tag.
func Get(tag string) (logger btclog.Logger, ok bool) {
	logger, ok = subsystemLoggers[tag]
	return
}

// ParseAndSetDebugLevels attempts to parse the specified debug level string
// and sets the levels accordingly. An appropriate error is returned if
// anything is invalid.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if _, exists := Get(subsysID); !exists {
			return fmt.Errorf("the specified subsystem [%s] is invalid -- supported subsystems %s",
				subsysID, strings.Join(SupportedSubsystems(), ", "))
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%s] is invalid", logLevel)
		}

		SetLogLevel(subsysID, logLevel)
	}

	return nil
}

func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}
