package patch_migrator

import (
	"context"
	"fmt"
	"log/slog"
)

// patchApplier доводит одну модель до актуального состояния ее патчей.
type patchApplier struct {
	entity  string
	patches map[string]Patch
	store   StateStore
	runner  statementRunner
	logger  *slog.Logger
}

func (a *patchApplier) apply(ctx context.Context) Outcome {
	outcome := Outcome{Entity: a.entity}

	applied, err := a.store.Read(ctx, a.entity)
	if err != nil {
		return a.fail(outcome, fmt.Errorf("read applied patches: %w", err))
	}
	outcome.AppliedSet = applied

	plan := newPatchPlan(a.patches, applied)
	if plan.IsEmpty() {
		a.logger.Info("model is up to date")
		outcome.State = StateDone
		return outcome
	}

	if main, ok := plan.PopMain(); ok {
		if err = a.applyPatch(ctx, main, &outcome); err != nil {
			return a.fail(outcome, err)
		}
	}

	for !plan.IsEmpty() {
		patch, ok := plan.PopReady(outcome.AppliedSet)
		if !ok {
			outcome.State = StateStuck
			outcome.Stuck = plan.Unresolved(outcome.AppliedSet)
			a.logger.Warn("no patch can be applied, dependencies are missing or cyclic",
				"pending", plan.Names(),
				"unresolved", outcome.Stuck)
			return outcome
		}

		if err = a.applyPatch(ctx, patch, &outcome); err != nil {
			return a.fail(outcome, err)
		}
	}

	a.logger.Info("done applying patches", "applied", len(outcome.Applied))
	outcome.State = StateDone
	return outcome
}

// applyPatch выполняет патч и сохраняет пополненный список. outcome.AppliedSet меняется только после
// успешной записи, поэтому всегда совпадает с сохраненным состоянием.
func (a *patchApplier) applyPatch(ctx context.Context, patch Patch, outcome *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.logger.Info("applying patch", "patch", patch.Name)

	if err := a.runner.run(ctx, patch.Statements); err != nil {
		return fmt.Errorf("apply patch %q: %w", patch.Name, err)
	}

	next := outcome.AppliedSet.Clone()
	next.Add(patch.Name)

	if err := a.store.Write(ctx, a.entity, next); err != nil {
		return fmt.Errorf("save patch %q: %w", patch.Name, err)
	}

	outcome.AppliedSet = next
	outcome.Applied = append(outcome.Applied, patch.Name)
	return nil
}

func (a *patchApplier) fail(outcome Outcome, err error) Outcome {
	a.logger.Error("failed to apply patches", "error", err)
	outcome.State = StateFailed
	outcome.Err = err
	return outcome
}
