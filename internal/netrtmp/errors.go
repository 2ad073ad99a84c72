package netrtmp

import "errors"

var errInvalidStreamKey = errors.New("netrtmp: invalid stream key")
