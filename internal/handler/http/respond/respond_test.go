package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{"map", http.StatusOK, map[string]string{"summary": "ok"}, `{"summary":"ok"}`},
		{"struct", http.StatusCreated, struct{ ID int }{ID: 123}, `{"ID":123}`},
		{"nil", http.StatusNoContent, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %v", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.expectedBody {
				t.Errorf("Body = %v, want %v", body, tt.expectedBody)
			}
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, make(chan int))

	if w.Code != http.StatusOK {
		t.Errorf("Code = %v, want 200", w.Code)
	}
}

func TestMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, http.StatusUnauthorized, "Unauthorized")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Code = %v, want 401", w.Code)
	}
	body := decodeBody(t, w)
	if body.Message != "Unauthorized" || body.RequestID != "" || body.RetryAfter != nil {
		t.Errorf("body = %+v", body)
	}
}

func TestErrorBody_RetryAfter(t *testing.T) {
	seconds := 42
	w := httptest.NewRecorder()
	JSON(w, http.StatusTooManyRequests, ErrorBody{Message: "slow down", RetryAfter: &seconds})

	if got := strings.TrimSpace(w.Body.String()); got != `{"message":"slow down","retryAfter":42}` {
		t.Errorf("Body = %s", got)
	}
}
