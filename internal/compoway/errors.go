package compoway

import "github.com/harubonchi/heat-cycle-demo/internal/errors"

const (
	// Transport errors
	ErrOpenPortFailed   = errors.ErrorCode("compoway_open_port_failed")
	ErrTransportTimeout = errors.ErrorCode("compoway_transport_timeout")
	ErrTransportFailed  = errors.ErrorCode("compoway_transport_failed")

	// Frame encoding errors
	ErrInvalidSession = errors.ErrorCode("compoway_invalid_session")

	// Frame decoding errors
	ErrFrameTooShort    = errors.ErrorCode("compoway_frame_too_short")
	ErrMarkerMismatch   = errors.ErrorCode("compoway_marker_mismatch")
	ErrChecksumMismatch = errors.ErrorCode("compoway_checksum_mismatch")
	ErrFieldDecode      = errors.ErrorCode("compoway_field_decode_failed")

	// Device errors
	ErrDeviceRejected = errors.ErrorCode("compoway_device_rejected")
)
