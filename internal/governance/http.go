package governance

import (
	"encoding/json"
	"net/http"
	"strconv"
)

var httpStatus = map[Code]int{
	CodeRateLimited:          http.StatusTooManyRequests,
	CodeLimitReached:         http.StatusPaymentRequired,
	CodeSubscriptionExpired:  http.StatusPaymentRequired,
	CodeUnauthorized:         http.StatusForbidden,
	CodeInvalidTransition:    http.StatusConflict,
	CodeSubscriberNotFound:   http.StatusNotFound,
	CodeSubscriptionNotFound: http.StatusNotFound,
	CodePaymentNotFound:      http.StatusUnprocessableEntity,
	CodeProvidersUnavailable: http.StatusServiceUnavailable,
	CodeNoProviderConfigured: http.StatusServiceUnavailable,
	CodeProviderError:        http.StatusBadGateway,
	CodeRequestCanceled:      StatusClientClosedRequest,
	CodeRequestTimeout:       http.StatusGatewayTimeout,
}

// StatusClientClosedRequest is the non-standard status logged when the caller
// went away before an answer was ready.
const StatusClientClosedRequest = 499

// HTTPStatus returns the response status for code. Unknown codes map to 500.
func HTTPStatus(code Code) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds. A set hint is
// never reported as less than one second.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int(e.RetryAfter.Seconds() + 0.999)
	return max(1, secs)
}

type errorBody struct {
	Error      string `json:"error"`
	Code       Code   `json:"code"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteHTTP writes e as {"error", "code"} with its mapped status. The
// sentinel message is used so wrapped causes never reach the caller.
func WriteHTTP(w http.ResponseWriter, e *Error) {
	retryAfter := e.RetryAfterSeconds()
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(e.Code))
	_ = json.NewEncoder(w).Encode(errorBody{Error: e.Message, Code: e.Code, RetryAfter: retryAfter})
}
