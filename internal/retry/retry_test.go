package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

type jsonRPCError struct {
	code int
	msg  string
}

func (e jsonRPCError) Error() string  { return e.msg }
func (e jsonRPCError) ErrorCode() int { return e.code }

func TestClassify_ExplicitMarkers(t *testing.T) {
	transient := Classify(Transient(errors.New("insufficient funds")))
	assert.Equal(t, ClassTransient, transient.Class)
	assert.Equal(t, "explicit_transient", transient.Reason)

	terminal := Classify(fmt.Errorf("wrapped: %w", Terminal(errors.New("bad job payload"))))
	assert.Equal(t, ClassTerminal, terminal.Class)
	assert.Equal(t, "explicit_terminal", terminal.Reason)

	assert.Nil(t, Transient(nil))
	assert.Nil(t, Terminal(nil))
}

func TestClassify_RepresentativeRuntimeErrors(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		expectedClass Class
	}{
		{
			name:          "context deadline transient",
			err:           fmt.Errorf("transfer: %w", context.DeadlineExceeded),
			expectedClass: ClassTransient,
		},
		{
			name:          "context canceled terminal",
			err:           context.Canceled,
			expectedClass: ClassTerminal,
		},
		{
			name:          "rpc 503 transient",
			err:           rpc.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"},
			expectedClass: ClassTransient,
		},
		{
			name:          "rpc 401 terminal",
			err:           rpc.HTTPError{StatusCode: 401, Status: "401 Unauthorized"},
			expectedClass: ClassTerminal,
		},
		{
			name:          "jsonrpc internal error transient",
			err:           jsonRPCError{code: -32603, msg: "internal error"},
			expectedClass: ClassTransient,
		},
		{
			name:          "jsonrpc revert terminal",
			err:           jsonRPCError{code: -32000, msg: "execution reverted: Game not started"},
			expectedClass: ClassTerminal,
		},
		{
			name:          "nonce race transient",
			err:           jsonRPCError{code: -32000, msg: "nonce too low"},
			expectedClass: ClassTransient,
		},
		{
			name:          "jsonrpc invalid request terminal",
			err:           jsonRPCError{code: -32600, msg: "bad request"},
			expectedClass: ClassTerminal,
		},
		{
			name:          "open circuit transient",
			err:           errors.New("read game: circuit breaker is open"),
			expectedClass: ClassTransient,
		},
		{
			name:          "unknown defaults terminal",
			err:           errors.New("unexpected failure"),
			expectedClass: ClassTerminal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Classify(tc.err)
			assert.Equal(t, tc.expectedClass, decision.Class, decision.Reason)
		})
	}
}

func TestBackoff(t *testing.T) {
	base := 5 * time.Second
	max := 5 * time.Minute

	assert.Equal(t, 5*time.Second, Backoff(1, base, max))
	assert.Equal(t, 10*time.Second, Backoff(2, base, max))
	assert.Equal(t, 20*time.Second, Backoff(3, base, max))
	assert.Equal(t, 80*time.Second, Backoff(5, base, max))
	assert.Equal(t, max, Backoff(10, base, max))
	assert.Equal(t, max, Backoff(100, base, max))

	assert.Equal(t, time.Second, Backoff(1, 0, 0))
	assert.Equal(t, base, Backoff(3, base, time.Second), "max below base clamps to base")
}

func TestIsMarkedTerminal(t *testing.T) {
	assert.True(t, IsMarkedTerminal(fmt.Errorf("job: %w", Terminal(errors.New("outcome unknown")))))
	assert.False(t, IsMarkedTerminal(Transient(errors.New("insufficient funds"))))
	assert.False(t, IsMarkedTerminal(errors.New("execution reverted")), "classified terminal but not marked")
	assert.False(t, IsMarkedTerminal(nil))
}
