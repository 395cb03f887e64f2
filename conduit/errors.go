package conduit

import "errors"

// ErrConnectionClosed is returned by Connection.Send once Close has run.
var ErrConnectionClosed = errors.New("conduit: connection closed")
