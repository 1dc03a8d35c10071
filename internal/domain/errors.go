package domain

import "errors"

// Failure taxonomy shared by every component. Wrap with fmt.Errorf("...: %w")
// and classify with errors.Is.
var (
	ErrPermissionDenied      = errors.New("permission denied")
	ErrUnsupportedCapability = errors.New("capability not supported")
	ErrResolutionTimeout     = errors.New("location resolution timed out")
	ErrResolutionUnavailable = errors.New("location unavailable")
	ErrProviderValidation    = errors.New("invalid provider request")
	ErrProviderDispatch      = errors.New("provider dispatch failed")
)

// LocationErrorCode maps a location failure to the short code clients use.
func LocationErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "denied"
	case errors.Is(err, ErrResolutionTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupportedCapability):
		return "unsupported"
	default:
		return "unavailable"
	}
}

// LocationErrorFromCode is the inverse of LocationErrorCode.
func LocationErrorFromCode(code string) error {
	switch code {
	case "denied":
		return ErrPermissionDenied
	case "timeout":
		return ErrResolutionTimeout
	case "unsupported":
		return ErrUnsupportedCapability
	default:
		return ErrResolutionUnavailable
	}
}
