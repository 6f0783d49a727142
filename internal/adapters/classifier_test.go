package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServing(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/models/autism:predict", r.URL.Path)

		var req predictRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			assert.Len(t, req.Instances, 1)
			assert.Len(t, req.Instances[0], InputSize)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestTFServingClassifier_Classify(t *testing.T) {
	var calls int32
	server := newServing(t, http.StatusOK, `{"predictions":[[0.73]]}`, &calls)
	defer server.Close()

	clf := NewTFServingClassifier(TFServingConfig{BaseURL: server.URL + "/", ModelName: "autism"}, ModelHandle{}, nil)
	p, err := clf.Classify(context.Background(), testPNG(t, 32, 32))
	require.NoError(t, err)
	assert.InDelta(t, 0.73, p, 1e-12)
	assert.Equal(t, int32(1), calls)
}

func TestTFServingClassifier_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperrors.AdapterKind
	}{
		{"server error", http.StatusInternalServerError, `{"error":"oom"}`, apperrors.AdapterUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":"shape mismatch"}`, apperrors.AdapterInference},
		{"empty predictions", http.StatusOK, `{"predictions":[]}`, apperrors.AdapterInference},
		{"prediction above one", http.StatusOK, `{"predictions":[[1.5]]}`, apperrors.AdapterInference},
		{"malformed body", http.StatusOK, `not json`, apperrors.AdapterInference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := newServing(t, tt.status, tt.body, &calls)
			defer server.Close()

			clf := NewTFServingClassifier(TFServingConfig{BaseURL: server.URL, ModelName: "autism"}, ModelHandle{}, nil)
			_, err := clf.Classify(context.Background(), testPNG(t, 16, 16))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, int32(1), calls, "inference must not be retried")
		})
	}
}

func TestTFServingClassifier_UndecodableSkipsServer(t *testing.T) {
	var calls int32
	server := newServing(t, http.StatusOK, `{"predictions":[[0.5]]}`, &calls)
	defer server.Close()

	clf := NewTFServingClassifier(TFServingConfig{BaseURL: server.URL, ModelName: "autism", Timeout: time.Second}, ModelHandle{}, nil)
	_, err := clf.Classify(context.Background(), []byte("nope"))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.AdapterUndecodable, appErr.Kind)
	assert.Zero(t, calls)
}

func TestTFServingClassifier_Ready(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		ready bool
	}{
		{"available", `{"model_version_status":[{"version":"1","state":"AVAILABLE"}]}`, true},
		{"loading", `{"model_version_status":[{"version":"1","state":"LOADING"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/models/autism", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			clf := NewTFServingClassifier(TFServingConfig{BaseURL: server.URL, ModelName: "autism"}, ModelHandle{}, nil)
			err := clf.Ready(context.Background())
			if tt.ready {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrAdapter)
			}
		})
	}
}

func TestStaticClassifier(t *testing.T) {
	p, err := StaticClassifier{Probability: 0.25}.Classify(context.Background(), testPNG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 0.25, p)

	_, err = StaticClassifier{Probability: 0.25}.Classify(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, apperrors.ErrAdapter)
}
