package constants

// Data Provider Error Codes
// These constants define page-level failure scenarios for upstream APIs
const (
	ErrCodeNetworkError      = "NETWORK_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUpstreamStatus    = "UPSTREAM_STATUS"
	ErrCodeInvalidDataFormat = "INVALID_DATA_FORMAT"
	ErrCodeRequestCancelled  = "REQUEST_CANCELLED"
)

// Item-level rejection reasons
const (
	RejectMissingName       = "MISSING_NAME"
	RejectMissingGeometry   = "MISSING_GEOMETRY"
	RejectUnsupportedGeom   = "UNSUPPORTED_GEOMETRY"
	RejectMissingCoordinate = "MISSING_COORDINATE"
	RejectMissingID         = "MISSING_ID"
	RejectMalformed         = "MALFORMED_ITEM"
	RejectOutOfRange        = "COORDINATE_OUT_OF_RANGE"
)

var DataProviderErrorMessages = map[string]string{
	ErrCodeNetworkError:      "Unable to reach the upstream API",
	ErrCodeRateLimited:       "Upstream rate limit exceeded",
	ErrCodeUpstreamStatus:    "Upstream API returned a non-2xx status",
	ErrCodeInvalidDataFormat: "Upstream response could not be decoded",
	ErrCodeRequestCancelled:  "Request was cancelled before completion",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := DataProviderErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
