// Package storage define los errores que todos los drivers de almacenamiento
// comparten con los services.
package storage

import "errors"

// ErrNotFound es el único error de un repo que significa "no existe". Todo
// otro error es una falla del backend.
var ErrNotFound = errors.New("not found")
