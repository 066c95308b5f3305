package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	base := errors.New("connection refused")
	err := E(CodeUpstream, "Engine.SearchByText", "catalog search failed", base)

	assert.Equal(t, "Engine.SearchByText: catalog search failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsCode(err, CodeUpstream))
	assert.False(t, IsCode(err, CodeNotFound))
}

func TestIsCodeOnWrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", E(CodeInvalidArgument, "ChatHandler.Chat", "input is required", nil))
	assert.True(t, IsCode(err, CodeInvalidArgument))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeMalformed, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeUpstream, http.StatusServiceUnavailable},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(E(tt.code, "op", "msg", nil)))
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("repo: %w", ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
