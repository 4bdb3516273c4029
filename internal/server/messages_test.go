package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseRoomId(t *testing.T) {
	tcases := []struct {
		name     string
		payload  json.RawMessage
		expected string
	}{
		{
			name:     "bare string",
			payload:  []byte(`"diagram-abc"`),
			expected: "diagram-abc",
		},
		{
			name:     "roomId object",
			payload:  []byte(`{"roomId":"diagram-abc"}`),
			expected: "diagram-abc",
		},
		{
			name:     "roomId object with extra fields",
			payload:  []byte(`{"roomId":"diagram-abc","classId":"class-1","x":10}`),
			expected: "diagram-abc",
		},
		{
			name:     "object without roomId",
			payload:  []byte(`{"classId":"class-1"}`),
			expected: "",
		},
		{
			name:     "empty payload",
			payload:  nil,
			expected: "",
		},
		{
			name:     "malformed payload",
			payload:  []byte(`{`),
			expected: "",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseRoomId(tc.payload), "expected parsed room id to match")
		})
	}
}

func TestNoErrOk(t *testing.T) {
	result := NoErrOK(1, map[string]any{"testkey": "testvalue"})

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.Equal(t, EventResponse, result.Event, "expected response event")
	assert.WithinDuration(t, Now(), result.Timestamp, time.Second, "expected Timestamp to be within 1 second")

	resp, ok := result.Payload.(*Response)
	assert.True(t, ok, "expected Response payload")
	assert.Equal(t, http.StatusOK, resp.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, map[string]any{"testkey": "testvalue"}, resp.Data, "expected Data to match")
}

func TestErrorConstructors(t *testing.T) {
	tcases := []struct {
		name         string
		fn           func(int) *ServerMessage
		responseCode int
		errMsg       string
	}{
		{
			name:         "room not found",
			fn:           ErrRoomNotFound,
			responseCode: http.StatusNotFound,
			errMsg:       "room not found",
		},
		{
			name:         "missing room id",
			fn:           ErrMissingRoomId,
			responseCode: http.StatusBadRequest,
			errMsg:       "missing roomId",
		},
		{
			name:         "internal error",
			fn:           ErrInternalError,
			responseCode: http.StatusInternalServerError,
			errMsg:       "internal server error",
		},
		{
			name:         "service unavailable",
			fn:           ErrServiceUnavailable,
			responseCode: http.StatusServiceUnavailable,
			errMsg:       "service unavailable",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.fn(1)

			assert.NotNil(t, result, "expected result to be non-nil")
			assert.Equal(t, 1, result.Id, "expected Id to match")
			assert.Equal(t, EventError, result.Event, "expected error event")
			assert.WithinDuration(t, Now(), result.Timestamp, time.Second, "expected Timestamp to be within 1 second")

			resp, ok := result.Payload.(*Response)
			assert.True(t, ok, "expected Response payload")
			assert.Equal(t, tc.responseCode, resp.ResponseCode, "expected ResponseCode to match")
			assert.Equal(t, tc.errMsg, resp.Error, "expected Error message to match")
		})
	}
}

func TestErrInvalidMessage(t *testing.T) {
	result := ErrInvalidMessage(-1)
	assert.Equal(t, 0, result.Id, "expected Id to be zero when no request id is known")

	resp, ok := result.Payload.(*Response)
	assert.True(t, ok, "expected Response payload")
	assert.Equal(t, http.StatusBadRequest, resp.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "invalid message format", resp.Error, "expected Error message to match")

	resultWithId := ErrInvalidMessage(42)
	assert.Equal(t, 42, resultWithId.Id, "expected Id to match request id")
}

func Test_relayEvents(t *testing.T) {
	expected := map[string]string{
		"update-diagram":  "diagram-updated",
		"move-class":      "class-moved",
		"mouse-move":      "mouse-moved",
		"add-class":       "class-added",
		"update-class":    "class-updated",
		"delete-class":    "class-deleted",
		"add-relation":    "relation-added",
		"update-relation": "relation-updated",
		"delete-relation": "relation-deleted",
	}
	assert.Equal(t, expected, relayEvents, "expected relay event table to match the wire contract")
}
