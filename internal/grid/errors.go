package grid

import "errors"

// ErrRowNotFound is returned when an edit targets a row id that is not
// in the current in-memory set (typically deleted by another client).
var ErrRowNotFound = errors.New("row not found")

// ErrColumnNotEditable is returned when an edit targets a column outside
// the grid's editable set. BeginEdit treats it as a silent no-op at the
// presentation boundary; the API reports it explicitly.
var ErrColumnNotEditable = errors.New("column is not editable")

// ErrEditBusy is returned when a new edit session is requested while a
// commit is still awaiting remote confirmation. One session per grid.
var ErrEditBusy = errors.New("another edit is awaiting confirmation")

// ErrNotLoaded is returned when an operation needs the row set but the
// initial load has not succeeded.
var ErrNotLoaded = errors.New("grid not loaded")
