package repositories

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// OpenJournal opens the journal at path, in memory when path is empty.
func OpenJournal(path string, debug bool) (*badger.DB, error) {
	options := badger.DefaultOptions(path)
	if path == "" {
		options = options.WithInMemory(true)
	}
	if debug {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return badger.Open(options)
}

// OpenJournalReadOnly opens an existing journal next to a running relay.
// A journal left untruncated by a crash is repaired with a short write open first.
func OpenJournalReadOnly(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if !strings.Contains(err.Error(), "Log truncate required") {
		return nil, err
	}

	repairOpts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithBypassLockGuard(true)
	db, err = badger.Open(repairOpts)
	if err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}
	if err = db.Close(); err != nil {
		return nil, err
	}
	return badger.Open(opts)
}
