package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errBase = stderrors.New("base")

func TestCustomizedError(t *testing.T) {
	err := New("Logic.Create", "error.internal", errBase).Code(http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, err.GetCode())
	assert.Equal(t, "error.internal", err.Message())
	assert.True(t, Is(err, errBase))

	traced := Trace("Handler.Create", err)
	assert.Same(t, err, traced)
	assert.Contains(t, traced.Error(), "Logic.Create->Handler.Create")
}

func TestTracePlainError(t *testing.T) {
	err := Trace("Store.Get", errBase)
	assert.Equal(t, http.StatusInternalServerError, err.GetCode())
	assert.Equal(t, "base", err.Message())
	assert.True(t, Is(err, errBase))
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", New("x", "error.notfound", nil).Code(http.StatusNotFound))
	ce, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ce.GetCode())

	_, ok = As(errBase)
	assert.False(t, ok)
}
