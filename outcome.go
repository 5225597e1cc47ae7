package patch_migrator

import (
	"fmt"
	"sort"
	"strings"
)

// State итоговое состояние миграции модели.
type State string

const (
	// StateDone все патчи модели применены.
	StateDone   State = "done"
	// StateStuck оставшиеся патчи не могут быть применены из-за неудовлетворенных зависимостей.
	StateStuck  State = "stuck"
	// StateFailed выполнение запроса или запись состояния завершились ошибкой, см. Outcome.Err.
	StateFailed State = "failed"
)

// StuckPatch ожидающий патч, который нельзя применить из-за неудовлетворенных зависимостей.
type StuckPatch struct {
	Name    string
	Missing []string
}

func (s StuckPatch) String() string {
	return fmt.Sprintf("%s (missing: %s)", s.Name, strings.Join(s.Missing, ", "))
}

// Outcome результат миграции одной модели.
type Outcome struct {
	Entity string
	State  State
	// Applied патчи, примененные за этот запуск, в порядке выполнения.
	Applied []string
	// AppliedSet список, сохраненный последней успешной записью.
	AppliedSet AppliedSet
	Stuck      []StuckPatch
	Err        error
}

// Outcomes результаты миграции по именам моделей.
type Outcomes map[string]Outcome

// Failed возвращает отсортированные имена моделей, миграция которых завершилась ошибкой.
func (o Outcomes) Failed() []string {
	return o.entitiesIn(StateFailed)
}

// Stuck возвращает отсортированные имена моделей с патчами, застрявшими на зависимостях.
func (o Outcomes) Stuck() []string {
	return o.entitiesIn(StateStuck)
}

func (o Outcomes) entitiesIn(state State) []string {
	var entities []string
	for entity, outcome := range o {
		if outcome.State == state {
			entities = append(entities, entity)
		}
	}
	sort.Strings(entities)
	return entities
}
