package session

import "errors"

var ErrValidation = errors.New("validation failed")
var ErrInvalidCredentials = errors.New("invalid email or password")
var ErrAlreadyRegistered = errors.New("email already registered")
var ErrInvalidSession = errors.New("no valid session for this operation")
var ErrDelivery = errors.New("authentication mail could not be sent")
var ErrPersistence = errors.New("identity store failed")
