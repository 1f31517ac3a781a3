package httperrors

import (
	"net/http"
)

var (
	ErrBadRequestInvalidAddress    = NewHTTPError(http.StatusBadRequest, PublicHTTPErrorTypeInvalidInput, "The contract address is not a valid hex address.")
	ErrBadRequestInvalidHash       = NewHTTPError(http.StatusBadRequest, PublicHTTPErrorTypeInvalidInput, "The transaction hash is not a valid 32 byte hex hash.")
	ErrBadRequestMissingPrivateKey = NewHTTPError(http.StatusBadRequest, PublicHTTPErrorTypeInvalidKey, "A private key is required.")
	ErrBadRequestMissingEventName  = NewHTTPError(http.StatusBadRequest, PublicHTTPErrorTypeInvalidInput, "An event name is required.")
)
