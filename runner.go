package patch_migrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

var defaultTolerantPrefixes = []string{"drop", "delete"}

// statementRunner выполняет запросы патча последовательно.
type statementRunner struct {
	executor Executor
	logger   *slog.Logger
	tolerant []string
}

// run останавливается на первом упавшем запросе, если только он ничего не удаляет: в этом случае
// считается, что удаляемого объекта уже нет.
func (r statementRunner) run(ctx context.Context, statements []string) error {
	for i, statement := range statements {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.executor.Exec(ctx, statement)
		if err == nil {
			continue
		}

		if r.isDeletion(statement) {
			r.logger.Debug("deletion statement failed, nothing to delete",
				"statement", statement,
				"error", err)
			continue
		}

		return fmt.Errorf("statement %d %q: %w: %w", i+1, statement, ErrStoreUnavailable, err)
	}

	return nil
}

func (r statementRunner) isDeletion(statement string) bool {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return false
	}

	keyword := strings.ToLower(fields[0])
	for _, prefix := range r.tolerant {
		if keyword == prefix {
			return true
		}
	}
	return false
}
