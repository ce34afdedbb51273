package response

type ErrCode int

const (
	_                        ErrCode = 10000 + iota
	ErrCodeMalformedJSON             // 10001
	ErrCodeRequestBody               // 10002
	ErrCodeResourceNotFound          // 10003
	ErrCodeInvalidAddress            // 10004
	ErrCodeControlFailed             // 10005
)

// New codes go at the end of the enum, with the matching message appended to
// errorMessages.
