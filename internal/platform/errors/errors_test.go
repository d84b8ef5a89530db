package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeValidation:   http.StatusBadRequest,
		ErrorCodeUnauthorized: http.StatusUnauthorized,
		ErrorCodeNotFound:     http.StatusNotFound,
		ErrorCodePrecondition: http.StatusUnprocessableEntity,
		ErrorCodeTransport:    http.StatusBadGateway,
		ErrorCodeDelivery:     http.StatusBadGateway,
		ErrorCodeUnknownEvent: http.StatusInternalServerError,
		ErrorCodeUnknown:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusCode(code), "code %d", code)
	}
}

func TestWrapPreservesCauseAndCode(t *testing.T) {
	cause := stderrs.New("connection reset")
	err := Wrapf(cause, ErrorCodeTransport, "tracker call failed")

	assert.Equal(t, ErrorCodeTransport, CodeOf(err))
	assert.True(t, IsCode(err, ErrorCodeTransport))
	assert.Equal(t, cause, Root(err))
	assert.ErrorIs(t, err, cause)
}

func TestWithOpCopyOnWrite(t *testing.T) {
	base := Deliveryf("chat api said not ok")
	tagged := WithOp(base, "postMessage")

	e, ok := As(tagged)
	require.True(t, ok)
	assert.Equal(t, "postMessage", e.Op())

	orig, ok := As(base)
	require.True(t, ok)
	assert.Empty(t, orig.Op(), "original must stay untouched")
}

func TestWireFromForeignError(t *testing.T) {
	w := WireFrom(fmt.Errorf("plain"))
	assert.Equal(t, ErrorCodeUnknown, w.Code)
	assert.Equal(t, "plain", w.Message)

	assert.Zero(t, WireFrom(nil))
}

func TestSilent(t *testing.T) {
	assert.True(t, Silent(NotFoundf("no matches")))
	assert.False(t, Silent(Transportf("timeout")))
	assert.False(t, Silent(nil))
}

func TestHTTPBundle(t *testing.T) {
	status, wire := HTTP(Validationf("title is required"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrorCodeValidation, wire.Code)

	status, wire = HTTP(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Zero(t, wire)
}
