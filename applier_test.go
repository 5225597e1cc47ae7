package patch_migrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, driver Driver, opts ...ManagerOption) *PatchManager {
	t.Helper()

	opts = append([]ManagerOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	manager, err := NewPatchManager(driver, opts...)
	require.NoError(t, err)
	return manager
}

func migrateEntity(t *testing.T, manager *PatchManager, entity string, patches ...Patch) Outcome {
	t.Helper()

	catalog := Catalog{entity: {}}
	for _, patch := range patches {
		patch.Entity = entity
		require.NoError(t, catalog.Add(patch))
	}

	outcomes, err := manager.Migrate(context.Background(), catalog)
	require.NoError(t, err)
	require.Contains(t, outcomes, entity)
	return outcomes[entity]
}

func scenarioPatches() []Patch {
	return []Patch{
		{Name: MainPatch, Statements: []string{"create table t"}},
		{Name: "p1", Dependencies: []string{MainPatch}, Statements: []string{"alter table t add c1"}},
		{Name: "p2", Dependencies: []string{"p1"}, Statements: []string{"alter table t add c2"}},
	}
}

func TestApplyScenario(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t", scenarioPatches()...)

	require.NoError(t, outcome.Err)
	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, []string{MainPatch, "p1", "p2"}, outcome.Applied)
	assert.Equal(t, []string{MainPatch, "p1", "p2"}, outcome.AppliedSet.Names())
	assert.Equal(t, []string{MainPatch, "p1", "p2"}, driver.record("t"))
	assert.Equal(t, []string{"create table t", "alter table t add c1", "alter table t add c2"}, driver.executed)
	// one checkpoint per patch
	assert.Equal(t, 3, driver.writes["t"])
}

func TestApplyIsIdempotent(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	first := migrateEntity(t, manager, "t", scenarioPatches()...)
	require.Equal(t, StateDone, first.State)
	driver.resetExecuted()

	second := migrateEntity(t, manager, "t", scenarioPatches()...)

	assert.Equal(t, StateDone, second.State)
	assert.Empty(t, second.Applied)
	assert.Empty(t, driver.executed)
	assert.Equal(t, first.AppliedSet.Names(), second.AppliedSet.Names())
	assert.Equal(t, 3, driver.writes["t"])
}

func TestApplyMainFirst(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: "-early", Statements: []string{"early"}},
		// dependencies of the main patch are ignored
		Patch{Name: MainPatch, Dependencies: []string{"-early"}, Statements: []string{"main one", "main two"}},
		Patch{Name: "a", Statements: []string{"a"}},
	)

	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, []string{"main one", "main two", "early", "a"}, driver.executed)
}

func TestApplyWithoutMain(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: "b", Dependencies: []string{"a"}, Statements: []string{"b"}},
		Patch{Name: "a", Statements: []string{"a"}},
	)

	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, []string{"a", "b"}, outcome.Applied)
}

func TestApplyRespectsDependencies(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	patches := []Patch{
		{Name: MainPatch, Statements: []string{MainPatch}},
		{Name: "a", Dependencies: []string{"z", "m"}, Statements: []string{"a"}},
		{Name: "b", Dependencies: []string{"a"}, Statements: []string{"b"}},
		{Name: "m", Dependencies: []string{"z"}, Statements: []string{"m"}},
		{Name: "z", Statements: []string{"z"}},
		{Name: "y", Dependencies: []string{MainPatch, "b"}, Statements: []string{"y"}},
	}

	outcome := migrateEntity(t, manager, "t", patches...)
	require.Equal(t, StateDone, outcome.State)

	position := make(map[string]int)
	for i, statement := range driver.executed {
		position[statement] = i
	}

	for _, patch := range patches {
		for _, dependency := range patch.Dependencies {
			if patch.Name == MainPatch {
				continue
			}
			assert.Less(t, position[dependency], position[patch.Name], "%s ran before its dependency %s", patch.Name, dependency)
		}
	}
	assert.Equal(t, []string{MainPatch, "z", "m", "a", "b", "y"}, outcome.Applied)
}

func TestApplyResumesAfterInterruption(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	// process died right after p1 was checkpointed
	driver.records["t"] = AppliedSet{MainPatch: true, "p1": true}

	outcome := migrateEntity(t, manager, "t", scenarioPatches()...)

	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, []string{"p2"}, outcome.Applied)
	assert.Equal(t, []string{"alter table t add c2"}, driver.executed)
}

func TestApplyResumesAfterFailure(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)
	driver.failExec = func(statement string) bool {
		return statement == "alter table t add c2"
	}

	failed := migrateEntity(t, manager, "t", scenarioPatches()...)
	assert.Equal(t, StateFailed, failed.State)
	assert.Equal(t, []string{MainPatch, "p1"}, failed.Applied)
	assert.Equal(t, []string{MainPatch, "p1"}, driver.record("t"))

	driver.failExec = nil
	driver.resetExecuted()

	resumed := migrateEntity(t, manager, "t", scenarioPatches()...)
	assert.Equal(t, StateDone, resumed.State)
	assert.Equal(t, []string{"p2"}, resumed.Applied)
	assert.Equal(t, []string{"alter table t add c2"}, driver.executed)
}

func TestApplyStuckOnMissingDependency(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: MainPatch, Statements: []string{"create"}},
		Patch{Name: "p1", Dependencies: []string{MainPatch, "ghost"}, Statements: []string{"p1"}},
		Patch{Name: "p2", Dependencies: []string{MainPatch}, Statements: []string{"p2"}},
	)

	assert.Equal(t, StateStuck, outcome.State)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, []StuckPatch{{Name: "p1", Missing: []string{"ghost"}}}, outcome.Stuck)
	assert.Equal(t, []string{MainPatch, "p2"}, driver.record("t"))
	assert.NotContains(t, driver.executed, "p1")
}

func TestApplyStuckOnCycle(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: "a", Dependencies: []string{"b"}, Statements: []string{"a"}},
		Patch{Name: "b", Dependencies: []string{"a"}, Statements: []string{"b"}},
	)

	assert.Equal(t, StateStuck, outcome.State)
	assert.Equal(t, []StuckPatch{
		{Name: "a", Missing: []string{"b"}},
		{Name: "b", Missing: []string{"a"}},
	}, outcome.Stuck)
	assert.Empty(t, driver.executed)
	assert.Empty(t, driver.record("t"))
	assert.Equal(t, "a (missing: b)", outcome.Stuck[0].String())
}

func TestApplyToleratesFailedDeletion(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)
	driver.failExec = func(statement string) bool {
		return strings.HasPrefix(strings.ToLower(statement), "drop") ||
			strings.HasPrefix(strings.ToLower(statement), "delete")
	}

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: "drop_old", Statements: []string{"drop table old"}},
		Patch{Name: "cleanup", Statements: []string{"DELETE FROM t WHERE id = 1", "create index i on t (c)"}},
	)

	assert.Equal(t, StateDone, outcome.State)
	assert.Equal(t, []string{"cleanup", "drop_old"}, outcome.Applied)
	assert.Equal(t, []string{"DELETE FROM t WHERE id = 1", "create index i on t (c)", "drop table old"}, driver.executed)
}

func TestApplyStopsOnStatementFailure(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)
	driver.failExec = func(statement string) bool {
		return statement == "alter table t add c1"
	}

	outcome := migrateEntity(t, manager, "t",
		Patch{Name: MainPatch, Statements: []string{"create table t"}},
		Patch{Name: "p1", Statements: []string{"alter table t add c1", "alter table t add c1b"}},
		Patch{Name: "p2", Statements: []string{"alter table t add c2"}},
	)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, ErrStoreUnavailable)
	assert.ErrorIs(t, outcome.Err, errDriver)
	assert.Equal(t, []string{"create table t", "alter table t add c1"}, driver.executed)
	assert.Equal(t, []string{MainPatch}, outcome.AppliedSet.Names())
	assert.Equal(t, []string{MainPatch}, driver.record("t"))
}

func TestApplyStopsOnWriteFailure(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)
	driver.failWriteAfter["t"] = 1

	outcome := migrateEntity(t, manager, "t", scenarioPatches()...)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, errDriver)
	assert.Equal(t, []string{MainPatch}, outcome.Applied)
	// in-memory set matches the last successful checkpoint
	assert.Equal(t, driver.record("t"), outcome.AppliedSet.Names())
	assert.Equal(t, []string{"create table t", "alter table t add c1"}, driver.executed)
}

func TestApplyStopsOnReadFailure(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)
	driver.readErr["t"] = errDriver

	outcome := migrateEntity(t, manager, "t", scenarioPatches()...)

	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, errDriver)
	assert.Empty(t, driver.executed)
}

func TestApplyStopsOnCancelledContext(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := Catalog{}
	for _, patch := range scenarioPatches() {
		patch.Entity = "t"
		require.NoError(t, catalog.Add(patch))
	}

	outcomes, err := manager.Migrate(ctx, catalog)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, outcomes["t"].State)
	assert.True(t, errors.Is(outcomes["t"].Err, context.Canceled))
	assert.Empty(t, driver.executed)
}

func TestApplyEmptyEntity(t *testing.T) {
	driver := newFakeDriver()
	manager := newTestManager(t, driver)

	outcome := migrateEntity(t, manager, "t")

	assert.Equal(t, StateDone, outcome.State)
	assert.Empty(t, outcome.Applied)
	assert.Zero(t, driver.writes["t"])
}
