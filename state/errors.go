package state

import "errors"

var ErrNoTablespace error = errors.New("none of the configured tablespaces exist on the server")
