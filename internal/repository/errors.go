package repository

import "errors"

var ErrNotFound = errors.New("record not found")
var ErrDuplicate = errors.New("record already exists")
var ErrCorrupt = errors.New("stored data is corrupt")
