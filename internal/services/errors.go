package services

import "errors"

var errNoGenerator = errors.New("prompt generator not configured")
