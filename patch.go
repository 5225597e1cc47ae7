package patch_migrator

import (
	"errors"
	"fmt"

	"github.com/Maksumys/patch-migrator/internal/models"
)

// MainPatch имя базового патча модели. Он выполняется раньше остальных патчей, объявленные у него
// зависимости не учитываются.
const MainPatch = ".main"

// ErrInvalidPatchName возвращается при повторной регистрации патча с тем же именем в одной модели.
var ErrInvalidPatchName = errors.New("invalid patch name")

// AppliedSet содержит имена патчей, уже примененных к модели.
type AppliedSet = models.AppliedSet

// Patch единица миграции модели: упорядоченные запросы и имена патчей, от которых она зависит.
type Patch struct {
	Name         string
	Entity       string
	Statements   []string
	Dependencies []string
}

// Catalog сопоставляет имени модели ее патчи по именам.
type Catalog map[string]map[string]Patch

// Add регистрирует патч в его модели. Повторная регистрация имени возвращает ErrInvalidPatchName,
// ранее зарегистрированный патч при этом не меняется.
func (c Catalog) Add(patch Patch) error {
	patches, ok := c[patch.Entity]
	if !ok {
		patches = make(map[string]Patch)
		c[patch.Entity] = patches
	}

	if _, ok = patches[patch.Name]; ok {
		return fmt.Errorf("%w: patch %q of model %q is already registered", ErrInvalidPatchName, patch.Name, patch.Entity)
	}

	patches[patch.Name] = patch
	return nil
}
