package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		status    int
		retryable bool
	}{
		{name: "validation", err: Validation("bad chain %d", 1), kind: KindValidation, status: http.StatusBadRequest},
		{name: "not found", err: NotFound("estimation %d not found", 7), kind: KindNotFound, status: http.StatusNotFound},
		{name: "business", err: BusinessRule("already started"), kind: KindBusinessRule, status: http.StatusBadRequest},
		{name: "external", err: ExternalService("read game", errors.New("timeout")), kind: KindExternalService, status: http.StatusInternalServerError, retryable: true},
		{name: "critical", err: CriticalInconsistency("mark revealed", errors.New("conn reset")), kind: KindCriticalInconsistency, status: http.StatusInternalServerError},
		{name: "plain error", err: errors.New("boom"), kind: KindInternal, status: http.StatusInternalServerError},
		{name: "wrapped business", err: fmt.Errorf("start game: %w", BusinessRule("already revealed")), kind: KindBusinessRule, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(KindOf(tt.err)))
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "already started", PublicMessage(BusinessRule("already started")))
	assert.Equal(t, "upstream service failure: read game", PublicMessage(ExternalService("read game", errors.New("dial tcp: refused"))))
	assert.Equal(t, "internal error", PublicMessage(CriticalInconsistency("mark revealed", errors.New("x"))))
	assert.Equal(t, "internal error", PublicMessage(errors.New("raw")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := ExternalService("rpc", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "rpc: cause", err.Error())
}
