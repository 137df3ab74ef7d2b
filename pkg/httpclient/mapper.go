package httpclient

import "net/http"

// MapError translates a failed call into the client error taxonomy. Errors that
// are already an *Error are returned unchanged. When resp is non-nil the
// status code decides the kind; otherwise err is classified as a transport
// failure.
func MapError(err error, resp *http.Response) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	if resp != nil {
		return MapStatus(resp.StatusCode)
	}
	if err == nil {
		return &Error{Kind: KindUnknown}
	}
	return mapTransportError(Classify(err))
}

func mapTransportError(te *TransportError) *Error {
	switch te.Code {
	case CodeNotConnected, CodeConnectionLost:
		return &Error{Kind: KindNoConnection, Cause: te}
	case CodeTimedOut:
		return &Error{Kind: KindTimeout, Cause: te}
	case CodeBadURL, CodeUnsupportedURL:
		return &Error{Kind: KindInvalidURL, Cause: te}
	default:
		return NetworkError(te)
	}
}

// MapStatus translates a non-success HTTP status code into the taxonomy.
// Exact matches take precedence over ranges.
func MapStatus(statusCode int) *Error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized}
	case statusCode == http.StatusForbidden:
		return &Error{Kind: KindForbidden}
	case statusCode == http.StatusNotFound:
		return &Error{Kind: KindNotFound}
	case statusCode >= 500 && statusCode <= 599:
		return &Error{Kind: KindInternalServerError}
	case statusCode >= 400 && statusCode <= 499:
		return ClientError(statusCode)
	default:
		return &Error{Kind: KindUnknown}
	}
}

// IsSuccess reports whether statusCode is in the inclusive 200-299 range.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode <= 299
}
