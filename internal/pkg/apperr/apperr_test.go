package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("card %s not found", "x")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindConflict, KindOf(Conflict("raced")))
	assert.Equal(t, KindInternal, KindOf(Internal("boom")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("validate receipt: %w", Conflict("already approved"))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestWithSerials(t *testing.T) {
	err := Validation("serials not shippable").WithSerials("SN-1", "SN-2")
	assert.Equal(t, []string{"SN-1", "SN-2"}, SerialsOf(err))

	wrapped := fmt.Errorf("stock out: %w", err)
	assert.Equal(t, []string{"SN-1", "SN-2"}, SerialsOf(wrapped))

	assert.Nil(t, SerialsOf(Validation("no serials attached")))
	assert.Nil(t, SerialsOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("x")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(Validation("x")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
