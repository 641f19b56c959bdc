package engine

import "errors"

// ErrMissingTarget is returned when neither a URL nor an existing bind is configured.
var ErrMissingTarget = errors.New("engine: either a url or a bind is required")

// ErrUnsupportedDriver is the construction-layer signal that the configured dialect
// or driver cannot be served by the native (pgx) engine. The resolver recovers from
// exactly this error by falling back to a standard database/sql engine; every other
// construction failure propagates unmodified.
var ErrUnsupportedDriver = errors.New("engine: driver does not support native mode")

// ErrUnknownDialect is returned when no registered driver can serve the URL's dialect.
var ErrUnknownDialect = errors.New("engine: unknown dialect")

// ErrUnknownPool is returned when a symbolic pool strategy name has no registration.
var ErrUnknownPool = errors.New("engine: unknown pool strategy")
