package clipsource

import "errors"

// Sentinel kinds for clip source errors.
var (
	ErrUnsupportedLocator = errors.New("unsupported clip locator")
	ErrClipUnavailable    = errors.New("clip unavailable")
)
