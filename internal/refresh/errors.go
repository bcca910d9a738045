package refresh

import "errors"

// None of these are fatal. The first two mean "not ready yet".
var (
	ErrProfileUnavailable  = errors.New("profile unavailable")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrFetchFailed         = errors.New("forecast fetch failed")
	ErrSkipped             = errors.New("refresh already in flight")
	ErrNotDue              = errors.New("forecast is still fresh")
)
