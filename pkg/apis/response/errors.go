package response

var errorMessages = map[ErrCode]string{
	ErrCodeMalformedJSON:    "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:      "Request body error",
	ErrCodeResourceNotFound: "The %s you requested was not found.",
	ErrCodeInvalidAddress:   "Register address %s is not a 16-bit number.",
	ErrCodeControlFailed:    "Failed to apply control command.",
}

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errorMessages[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errorMessages[ErrCodeRequestBody],
}
