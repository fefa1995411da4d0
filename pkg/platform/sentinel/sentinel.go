package sentinel

import "errors"

// ErrNotFound is returned (optionally wrapped) by stores when a document does
// not exist. Services translate it into a coded domain error; validation and
// business rule failures use pkg/domain-errors directly.
var ErrNotFound = errors.New("not found")
