package response

import (
	"encoding/json"
	"fmt"
	"strings"
)

type responseError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

func (re *responseError) Error() string {
	if re == nil {
		return ""
	}
	return fmt.Sprintf("%d: %s", re.Code, re.Message)
}

func (re *responseError) GetCode() ErrCode {
	if re == nil {
		return 0
	}
	return re.Code
}

func (re *responseError) Unwrap() error {
	return re.Err
}

func IsResponseError(err error) bool {
	_, ok := err.(*responseError)
	return ok
}

// MultiError is the body of every non-2xx response: {"errors":[...]}.
type MultiError struct {
	errors []error
}

func NewMultiError(err ...error) *MultiError {
	return &MultiError{
		errors: err,
	}
}

func (e *MultiError) Len() int {
	if e == nil {
		return 0
	}
	return len(e.errors)
}

func (e *MultiError) MarshalJSON() ([]byte, error) {
	items := make([]interface{}, 0, len(e.errors))
	for _, err := range e.errors {
		if IsResponseError(err) {
			items = append(items, err)
			continue
		}
		items = append(items, struct {
			Message string `json:"message"`
		}{Message: err.Error()})
	}
	return json.Marshal(struct {
		Errors []interface{} `json:"errors"`
	}{
		Errors: items,
	})
}

func (e *MultiError) Error() string {
	es := make([]string, 0, len(e.errors))
	for _, err := range e.errors {
		es = append(es, err.Error())
	}
	return strings.Join(es, "; ")
}

func generateError(code ErrCode, s ...interface{}) *responseError {
	return &responseError{
		Code:    code,
		Message: fmt.Sprintf(errorMessages[code], s...),
	}
}

func generateErrorWrapper(code ErrCode, err error, s ...interface{}) *responseError {
	return &responseError{
		Code:    code,
		Message: fmt.Sprintf(errorMessages[code], s...),
		Err:     err,
	}
}

func ErrResourceNotFound(resource string) *responseError {
	return generateError(ErrCodeResourceNotFound, resource)
}

func ErrInvalidAddress(address string) *responseError {
	return generateError(ErrCodeInvalidAddress, address)
}

func ErrControlFailed(err error) *responseError {
	return generateErrorWrapper(ErrCodeControlFailed, err)
}
