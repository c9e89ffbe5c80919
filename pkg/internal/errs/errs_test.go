package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeisme/cloudbox/pkg/internal/errs"
)

// TestIsMatchesByCode 不同信息的同种类错误互相匹配，包装后仍可识别.
func TestIsMatchesByCode(t *testing.T) {
	err := errs.NotFound("file %s not found", "abc")
	wrapped := fmt.Errorf("download: %w", err)

	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, wrapped, errs.ErrNotFound)
	assert.NotErrorIs(t, wrapped, errs.ErrShareExpired)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(wrapped))
	assert.Equal(t, "file abc not found", errs.MessageOf(wrapped))
}

// TestUpstreamUnwrap 上游错误保留原因.
func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.Upstream(cause, "put object")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errs.ErrUpstream)
	assert.Contains(t, err.Error(), "connection reset")
}

// TestHTTPStatus 错误种类到状态码的映射.
func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		errs.NotFound("x"):               http.StatusNotFound,
		errs.QuotaExceeded("x"):          http.StatusBadRequest,
		errs.SourceMissing("x"):          http.StatusBadRequest,
		errs.Validation("x"):             http.StatusBadRequest,
		errs.ShareExpired("x"):           http.StatusGone,
		errs.Upstream(nil, "x"):          http.StatusBadGateway,
		errs.Unauthorized("x"):           http.StatusUnauthorized,
		errs.Forbidden("x"):              http.StatusForbidden,
		errs.Conflict("x"):               http.StatusConflict,
		errors.New("database is locked"): http.StatusInternalServerError,
	}

	for err, want := range cases {
		assert.Equal(t, want, errs.HTTPStatus(err), err.Error())
	}

	assert.Equal(t, "internal server error", errs.MessageOf(errors.New("secret detail")))
}
