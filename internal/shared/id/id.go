// Package id provides ULID-based identifiers for boot-time objects.
//
// Namespaces and tasks get prefixed, lexicographically sortable IDs so
// that log lines from the sequencer, the loader and the scheduler can be
// correlated and ordered by creation time:
//
//	ns_01J9ZK3Q6X8N0C2V4B5M7P9R1T
//	task_01J9ZK3Q70A1B2C3D4E5F6G7H8
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// NamespaceID identifies an application namespace
type NamespaceID string

// TaskID identifies a spawned task
type TaskID string

const (
	NamespacePrefix = "ns"
	TaskPrefix      = "task"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic IDs.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewNamespaceID generates a new namespace ID
func NewNamespaceID() NamespaceID {
	return NamespaceID(Default().GenerateWithPrefix(NamespacePrefix))
}

// NewTaskID generates a new task ID
func NewTaskID() TaskID {
	return TaskID(Default().GenerateWithPrefix(TaskPrefix))
}

func (id NamespaceID) String() string { return string(id) }
func (id TaskID) String() string      { return string(id) }

// IsValid reports whether id is a ULID, with or without a type prefix.
func IsValid(id string) bool {
	_, err := ulid.Parse(stripPrefix(id))
	return err == nil
}

// Timestamp extracts the creation time from a (possibly prefixed) ID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(stripPrefix(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

func stripPrefix(id string) string {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}
