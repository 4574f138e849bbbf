package media

import "errors"

var (
	// ErrProberUnavailable indicates the duration prober is not configured.
	ErrProberUnavailable = errors.New("media duration prober unavailable")
	// ErrNoDuration indicates the prober could not determine a duration.
	ErrNoDuration = errors.New("media has no duration")
	// ErrStoreUnavailable indicates the object store is not configured.
	ErrStoreUnavailable = errors.New("media object store unavailable")
	// ErrEmptyLocation indicates the object store accepted an upload but returned no location.
	ErrEmptyLocation = errors.New("media upload returned no location")

	errJanitorClosed = errors.New("media janitor closed")
	errJanitorFull   = errors.New("media janitor queue full")
)
