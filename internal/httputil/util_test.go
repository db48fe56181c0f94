package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErr(t *testing.T) {
	t.Parallel()
	decodeErr := func(body string) error {
		var v struct {
			K int `json:"k"`
		}
		d := json.NewDecoder(strings.NewReader(body))
		d.DisallowUnknownFields()
		return d.Decode(&v)
	}

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "syntax", err: decodeErr(`{"k": }`), expected: http.StatusBadRequest},
		{name: "unexpected_eof", err: decodeErr(`{"k": 1`), expected: http.StatusBadRequest},
		{name: "type", err: decodeErr(`{"k": "x"}`), expected: http.StatusBadRequest},
		{name: "unknown_field", err: decodeErr(`{"q": 1}`), expected: http.StatusBadRequest},
		{name: "empty", err: io.EOF, expected: http.StatusBadRequest},
		{name: "too_large", err: errors.New("http: request body too large"), expected: http.StatusRequestEntityTooLarge},
		{name: "other", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			DecodeErr(context.Background(), w, test.err)
			assert.Equal(t, test.expected, w.Code)
		})
	}
}

func TestRespJSON(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	RespJSON(context.Background(), w, http.StatusCreated, map[string]int{"size": 3})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"size": 3}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	assert.Nil(t, NewLimiter(0, 10))

	h := RateLimit(NewLimiter(0.001, 2), ok)
	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	unlimited := RateLimit(nil, ok)
	w := httptest.NewRecorder()
	unlimited.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
