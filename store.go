package patch_migrator

import (
	"context"
	"errors"
)

// ErrStoreUnavailable оборачивает любую ошибку обращения к хранилищу и ошибку выполнения запроса,
// не являющегося удалением.
var ErrStoreUnavailable = errors.New("store unavailable")

// Executor выполняет один запрос в хранилище.
type Executor interface {
	Exec(ctx context.Context, statement string) error
}

// StateStore хранит имена примененных патчей каждой модели.
type StateStore interface {
	// EnsureSchema создает системную таблицу, если ее еще нет.
	EnsureSchema(ctx context.Context) error
	// Read возвращает список примененных патчей модели, пустой если записи нет.
	Read(ctx context.Context, entity string) (AppliedSet, error)
	// Write перезаписывает список примененных патчей модели.
	Write(ctx context.Context, entity string, applied AppliedSet) error
}

// Driver хранилище, которое выполняет запросы патчей и хранит их состояние.
type Driver interface {
	Executor
	StateStore
}
