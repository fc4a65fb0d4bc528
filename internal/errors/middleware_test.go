package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotpulse/internal/shared/testutil"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		shouldPanic bool
		wantStatus  int
	}{
		{
			name: "normal request without panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "panic with string",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("something went wrong")
			},
			shouldPanic: true,
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name: "panic with error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(assert.AnError)
			},
			shouldPanic: true,
			wantStatus:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logHandler := testutil.NewTestLogger(t)
			handler := RecoveryMiddleware(NewErrorHandler(logger, false))(tt.handler)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.shouldPanic, logHandler.ContainsMessage("panic recovered"))

			if tt.shouldPanic {
				var problem ProblemDetails
				require.NoError(t, json.NewDecoder(w.Body).Decode(&problem))
				assert.Equal(t, TypeInternal, problem.Type)
				assert.Equal(t, "An unexpected error occurred", problem.Detail)
				assert.NotContains(t, problem.Extensions, "stack")
			}
		})
	}
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := RecoveryMiddleware(NewErrorHandler(logger, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
