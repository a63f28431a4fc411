package service

import "errors"

// ErrSessionInactive is returned by stream accessors when no dashboard
// session is running.
var ErrSessionInactive = errors.New("service: dashboard session not active")
