package patch_migrator

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

const (
	patchExtension = ".cql"
	depsPrefix     = "deps: "
)

var (
	rePatchFile = regexp.MustCompile(`^([a-zA-Z\d_-]+)\.([a-zA-Z\d_-]+)\.cql$`)
	reMainFile  = regexp.MustCompile(`^([a-zA-Z\d_-]+)\.cql$`)
	reBreaks    = regexp.MustCompile(`[\t\r\n]+`)
)

// LoadCatalog читает файлы патчей из корня fsys.
//
//	users.cql            - патч .main модели users
//	users.add_email.cql  - патч add_email модели users
//
// Скрытые файлы, каталоги и файлы с другими расширениями пропускаются.
func LoadCatalog(fsys fs.FS) (Catalog, error) {
	catalog := make(Catalog)
	if err := catalog.Load(fsys); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Load добавляет в каталог патчи из корня fsys, например при сборке каталога из нескольких
// каталогов. Патч, уже зарегистрированный в каталоге, возвращает ErrInvalidPatchName.
func (c Catalog) Load(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read patches directory: %w", err)
	}

	for _, entry := range entries {
		file := entry.Name()
		if strings.HasPrefix(file, ".") || entry.IsDir() {
			continue
		}

		entity, name, ok := ParseFileName(file)
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read patch %s: %w", file, err)
		}

		if err = c.Add(ParsePatch(entity, name, string(content))); err != nil {
			return fmt.Errorf("load patch %s: %w", file, err)
		}
	}

	return nil
}

// ParseFileName разбирает имя файла патча на имя модели и имя патча.
func ParseFileName(file string) (entity string, name string, ok bool) {
	if !strings.HasSuffix(file, patchExtension) {
		return "", "", false
	}

	if match := rePatchFile.FindStringSubmatch(file); match != nil {
		return match[1], match[2], true
	}
	if match := reMainFile.FindStringSubmatch(file); match != nil {
		return match[1], MainPatch, true
	}

	return "", "", false
}

// ParsePatch делит content по ';' на запросы. Сегмент вида "deps: a,b" задает зависимости патча
// и запросом не считается.
func ParsePatch(entity, name, content string) Patch {
	patch := Patch{
		Name:   name,
		Entity: entity,
	}

	for _, segment := range strings.Split(content, ";") {
		segment = strings.TrimSpace(reBreaks.ReplaceAllString(segment, " "))
		if segment == "" {
			continue
		}

		if strings.HasPrefix(segment, depsPrefix) {
			patch.Dependencies = parseDependencies(segment[len(depsPrefix):])
			continue
		}

		patch.Statements = append(patch.Statements, segment)
	}

	return patch
}

func parseDependencies(list string) []string {
	var deps []string
	for _, dep := range strings.Split(list, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			deps = append(deps, dep)
		}
	}
	return deps
}
