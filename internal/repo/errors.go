package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidManifest — сохранённый manifest не проходит валидацию.
	ErrInvalidManifest = errors.New("invalid stored manifest")
)
