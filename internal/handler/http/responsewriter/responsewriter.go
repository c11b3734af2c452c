// Package responsewriter records what a handler wrote so that middleware can
// log it, count it and decide whether an error response can still be sent.
package responsewriter

import "net/http"

// ResponseWriter wraps http.ResponseWriter and records the status and body size.
type ResponseWriter struct {
	http.ResponseWriter
	status  int
	written int
	wrote   bool
}

// Wrap returns w unchanged when it is already wrapped.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status code only, matching net/http.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.status = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *ResponseWriter) Flush() {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// StatusCode returns the status sent, or 200 when nothing was written yet.
func (w *ResponseWriter) StatusCode() int { return w.status }

// BytesWritten returns the body size written so far.
func (w *ResponseWriter) BytesWritten() int { return w.written }

// HeaderWritten reports whether the status line has been sent.
func (w *ResponseWriter) HeaderWritten() bool { return w.wrote }

// Unwrap supports http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
