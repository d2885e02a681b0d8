package models

import "errors"

// ErrNotFound reports that the configuration store has no API with the
// requested identifier. Callers translate it to a 404 at the HTTP edge.
var ErrNotFound = errors.New("api configuration not found")
