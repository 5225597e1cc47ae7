package patch_migrator

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errDriver = errors.New("driver failure")

// fakeDriver keeps state in memory and records executed statements per entity. Statements are
// attributed to an entity by their "<entity>:" prefix when present.
type fakeDriver struct {
	mu sync.Mutex

	records  map[string]AppliedSet
	executed []string
	writes   map[string]int

	schemaCalls int
	schemaErr   error
	readErr     map[string]error
	// failExec fails every statement for which it returns true
	failExec func(statement string) bool
	// failWriteAfter fails writes of an entity once it has been written that many times
	failWriteAfter map[string]int
	// execHook runs before a statement is recorded, outside of the lock
	execHook func(statement string)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		records:        make(map[string]AppliedSet),
		writes:         make(map[string]int),
		readErr:        make(map[string]error),
		failWriteAfter: make(map[string]int),
	}
}

func (d *fakeDriver) EnsureSchema(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.schemaCalls++
	return d.schemaErr
}

func (d *fakeDriver) Read(ctx context.Context, entity string) (AppliedSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.readErr[entity]; err != nil {
		return nil, err
	}
	return d.records[entity].Clone(), nil
}

func (d *fakeDriver) Write(ctx context.Context, entity string, applied AppliedSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if limit, ok := d.failWriteAfter[entity]; ok && d.writes[entity] >= limit {
		return errDriver
	}

	d.writes[entity]++
	d.records[entity] = applied.Clone()
	return nil
}

func (d *fakeDriver) Exec(ctx context.Context, statement string) error {
	if d.execHook != nil {
		d.execHook(statement)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.executed = append(d.executed, statement)
	if d.failExec != nil && d.failExec(statement) {
		return errDriver
	}
	return nil
}

func (d *fakeDriver) record(entity string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.records[entity].Names()
}

func (d *fakeDriver) executedBy(entity string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var statements []string
	for _, statement := range d.executed {
		if strings.HasPrefix(statement, entity+":") {
			statements = append(statements, strings.TrimPrefix(statement, entity+":"))
		}
	}
	return statements
}

func (d *fakeDriver) resetExecuted() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.executed = nil
}
