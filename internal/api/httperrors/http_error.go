package httperrors

import (
	"fmt"
	"net/http"

	"github/chapool/contract-gateway/internal/gateway/gwerr"
)

// Public error types, stable identifiers clients can switch on.
const (
	PublicHTTPErrorTypeGeneric             = "generic"
	PublicHTTPErrorTypeInvalidInput        = "INVALID_INPUT"
	PublicHTTPErrorTypeInvalidKey          = "INVALID_KEY"
	PublicHTTPErrorTypeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	PublicHTTPErrorTypeProviderRejected    = "PROVIDER_REJECTED"
	PublicHTTPErrorTypeRejected            = "REJECTED"
	PublicHTTPErrorTypeNonceGapDetected    = "NONCE_GAP_DETECTED"
	PublicHTTPErrorTypeTimedOut            = "TIMED_OUT"
	PublicHTTPErrorTypeReverted            = "REVERTED"
	PublicHTTPErrorTypeDecodeError         = "DECODE_ERROR"
	PublicHTTPErrorTypeUnknownFunction     = "UNKNOWN_FUNCTION"
	PublicHTTPErrorTypeUnknownEvent        = "UNKNOWN_EVENT"
	PublicHTTPErrorTypeNotFound            = "NOT_FOUND"
)

type HTTPError struct {
	Code     int    `json:"status"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Finality string `json:"finality,omitempty"`
	Internal error  `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

func (e *HTTPError) Error() string {
	var msg string
	if len(e.Detail) > 0 {
		msg = fmt.Sprintf("HTTPError %d (%s): %s - %s", e.Code, e.Type, e.Title, e.Detail)
	} else {
		msg = fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
	}
	if e.Internal != nil {
		msg = fmt.Sprintf("%s, %v", msg, e.Internal)
	}

	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

type kindMapping struct {
	code      int
	errorType string
	title     string
}

var kindMappings = map[gwerr.Kind]kindMapping{
	gwerr.KindInvalidInput:        {http.StatusBadRequest, PublicHTTPErrorTypeInvalidInput, "The request is invalid."},
	gwerr.KindInvalidKey:          {http.StatusBadRequest, PublicHTTPErrorTypeInvalidKey, "The private key is invalid."},
	gwerr.KindUnknownFunction:     {http.StatusBadRequest, PublicHTTPErrorTypeUnknownFunction, "The function is not part of the contract interface."},
	gwerr.KindUnknownEvent:        {http.StatusBadRequest, PublicHTTPErrorTypeUnknownEvent, "The event is not part of the contract interface."},
	gwerr.KindNotFound:            {http.StatusNotFound, PublicHTTPErrorTypeNotFound, "The transaction is unknown."},
	gwerr.KindProviderUnavailable: {http.StatusServiceUnavailable, PublicHTTPErrorTypeProviderUnavailable, "The chain provider is unavailable."},
	gwerr.KindProviderRejected:    {http.StatusUnprocessableEntity, PublicHTTPErrorTypeProviderRejected, "The chain provider rejected the request."},
	gwerr.KindRejected:            {http.StatusUnprocessableEntity, PublicHTTPErrorTypeRejected, "The transaction was rejected."},
	gwerr.KindNonceGapDetected:    {http.StatusConflict, PublicHTTPErrorTypeNonceGapDetected, "A nonce gap was left behind; later transactions of this account are stuck."},
	gwerr.KindTimedOut:            {http.StatusAccepted, PublicHTTPErrorTypeTimedOut, "No receipt yet, check later by transaction hash."},
	gwerr.KindReverted:            {http.StatusUnprocessableEntity, PublicHTTPErrorTypeReverted, "The transaction was mined but reverted."},
	gwerr.KindDecodeError:         {http.StatusBadGateway, PublicHTTPErrorTypeDecodeError, "The chain returned data that does not match the contract interface."},
}

// FromGateway converts a gwerr error into an HTTPError. ok is false for
// errors without a known kind.
func FromGateway(err error) (*HTTPError, bool) {
	kind := gwerr.KindOf(err)

	mapping, ok := kindMappings[kind]
	if !ok {
		return nil, false
	}

	return &HTTPError{
		Code:     mapping.code,
		Type:     mapping.errorType,
		Title:    mapping.title,
		Detail:   err.Error(),
		Finality: string(gwerr.FinalityOf(err)),
		Internal: err,
	}, true
}
