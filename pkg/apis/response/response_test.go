package response

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiErrorMarshal(t *testing.T) {
	b, err := json.Marshal(NewMultiError(ErrResourceNotFound("register"), errors.New("plain")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[
		{"code":10003,"message":"The register you requested was not found."},
		{"message":"plain"}
	]}`, string(b))
}

func TestControlFailedUnwraps(t *testing.T) {
	cause := errors.New("serial timeout")
	err := ErrControlFailed(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrCodeControlFailed, err.GetCode())
	assert.True(t, IsResponseError(err))
	assert.Equal(t, "10005: Failed to apply control command.", err.Error())
}

func TestRegisterLookupBodies(t *testing.T) {
	b, err := json.Marshal(NewMultiError(ErrInvalidAddress("volts")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[{"code":10004,"message":"Register address volts is not a 16-bit number."}]}`, string(b))

	b, err = json.Marshal(NewMultiError(ErrMalformedJSON))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"code":10001`)
}
