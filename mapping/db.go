package mapping

import (
	_ "embed"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed gamecontrollerdb.txt
var bundledDB string

// Source ranks where a record came from. Higher sources shadow lower ones;
// within one source the last inserted record wins.
type Source uint8

const (
	SourceBundled Source = iota
	SourceEnv
	SourceUser
)

func (s Source) String() string {
	switch s {
	case SourceBundled:
		return "bundled"
	case SourceEnv:
		return "env"
	case SourceUser:
		return "user"
	}
	return "unknown"
}

type record struct {
	m   *Mapping
	src Source
}

// Database holds mapping records keyed by device GUID. Safe for concurrent
// use.
type Database struct {
	mu      sync.RWMutex
	logger  *zap.SugaredLogger
	records map[uuid.UUID]record
}

// NewDatabase returns an empty database. A nil logger disables logging.
func NewDatabase(logger *zap.SugaredLogger) *Database {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Database{
		logger:  logger,
		records: make(map[uuid.UUID]record),
	}
}

// currentPlatform is the database's name for the running OS. Records tagged
// for another platform are skipped on insert.
var currentPlatform = map[string]string{
	"linux":   "Linux",
	"windows": "Windows",
	"darwin":  "Mac OS X",
	"android": "Android",
	"ios":     "iOS",
}[runtime.GOOS]

func platformMatches(p string) bool {
	return p == "" || currentPlatform == "" || p == currentPlatform
}

// Insert parses one record line and stores it under its GUID. Records for a
// foreign platform are skipped without error. A record never displaces one
// from a higher-ranked source; within the same or a lower rank, last wins.
func (d *Database) Insert(line string, src Source) error {
	m, err := Parse(line)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !platformMatches(m.Platform()) {
		d.logger.Debugw("skipping mapping for foreign platform",
			"guid", m.guid, "platform", m.Platform())
		return nil
	}
	if old, ok := d.records[m.guid]; ok && old.src > src {
		d.logger.Debugw("mapping shadowed by higher-priority record",
			"guid", m.guid, "source", src, "kept", old.src)
		return nil
	}
	d.records[m.guid] = record{m: m, src: src}
	return nil
}

// InsertAll feeds every line of a multi-record text into Insert, skipping
// blank lines and '#' comments. Malformed lines are logged and skipped
// rather than aborting the load. Returns how many records the database
// gained.
func (d *Database) InsertAll(text string, src Source) int {
	d.mu.RLock()
	before := len(d.records)
	d.mu.RUnlock()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := d.Insert(line, src); err != nil {
			d.logger.Warnw("skipping bad mapping record", "error", err)
		}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records) - before
}

// LoadBundled inserts the records compiled into the binary.
func (d *Database) LoadBundled() int {
	return d.InsertAll(bundledDB, SourceBundled)
}

// Lookup returns the effective mapping for a device GUID.
func (d *Database) Lookup(u uuid.UUID) (*Mapping, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[u]
	if !ok {
		return nil, false
	}
	return rec.m, true
}

// Len reports the number of stored records.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
