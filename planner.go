package patch_migrator

import (
	"container/list"
	"sort"
)

// patchPlan хранит ожидающие патчи одной модели в лексическом порядке имен.
type patchPlan struct {
	pending *list.List
}

func newPatchPlan(patches map[string]Patch, applied AppliedSet) patchPlan {
	names := make([]string, 0, len(patches))
	for name := range patches {
		if applied.Has(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	plan := patchPlan{pending: list.New()}
	for _, name := range names {
		patch := patches[name]
		patch.Name = name
		plan.pending.PushBack(patch)
	}
	return plan
}

func (p patchPlan) IsEmpty() bool {
	return p.pending.Len() == 0
}

func (p patchPlan) Len() int {
	return p.pending.Len()
}

// PopMain извлекает базовый патч из плана, если он еще не применен.
func (p patchPlan) PopMain() (Patch, bool) {
	for e := p.pending.Front(); e != nil; e = e.Next() {
		patch := e.Value.(Patch)
		if patch.Name == MainPatch {
			p.pending.Remove(e)
			return patch, true
		}
	}
	return Patch{}, false
}

// PopReady извлекает первый ожидающий патч, все зависимости которого уже применены.
func (p patchPlan) PopReady(applied AppliedSet) (Patch, bool) {
	for e := p.pending.Front(); e != nil; e = e.Next() {
		patch := e.Value.(Patch)
		if len(missingDependencies(patch, applied)) == 0 {
			p.pending.Remove(e)
			return patch, true
		}
	}
	return Patch{}, false
}

func (p patchPlan) Names() []string {
	names := make([]string, 0, p.pending.Len())
	for e := p.pending.Front(); e != nil; e = e.Next() {
		names = append(names, e.Value.(Patch).Name)
	}
	return names
}

// Unresolved описывает каждый ожидающий патч вместе с его неудовлетворенными зависимостями.
func (p patchPlan) Unresolved(applied AppliedSet) []StuckPatch {
	stuck := make([]StuckPatch, 0, p.pending.Len())
	for e := p.pending.Front(); e != nil; e = e.Next() {
		patch := e.Value.(Patch)
		stuck = append(stuck, StuckPatch{
			Name:    patch.Name,
			Missing: missingDependencies(patch, applied),
		})
	}
	return stuck
}

func missingDependencies(patch Patch, applied AppliedSet) []string {
	var missing []string
	seen := make(map[string]bool, len(patch.Dependencies))

	for _, dependency := range patch.Dependencies {
		if applied.Has(dependency) || seen[dependency] {
			continue
		}
		seen[dependency] = true
		missing = append(missing, dependency)
	}

	sort.Strings(missing)
	return missing
}
