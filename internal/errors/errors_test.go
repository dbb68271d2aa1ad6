package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randomtoy/mysticorb/internal/errors"
)

func TestError_IsByCode(t *testing.T) {
	err := errors.Validation("question is required")

	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.NotErrorIs(t, err, errors.ErrNotFound)
}

func TestError_InterpretationParseIsRequestFailure(t *testing.T) {
	err := errors.InterpretationParse("missing interpretation", nil)

	assert.ErrorIs(t, err, errors.ErrInterpretationParse)
	assert.ErrorIs(t, err, errors.ErrRequestFailure)
	assert.NotErrorIs(t, errors.RequestFailure("boom", nil), errors.ErrInterpretationParse)
}

func TestError_WrappedThroughFmt(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("save card: %w", errors.Storage("could not save card", cause))

	assert.ErrorIs(t, err, errors.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save card: could not save card: disk full", err.Error())
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeConflict, http.StatusConflict},
		{errors.CodeRequestFailure, http.StatusBadGateway},
		{errors.CodeInterpretationParse, http.StatusBadGateway},
		{errors.CodeStorage, http.StatusInternalServerError},
		{errors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
