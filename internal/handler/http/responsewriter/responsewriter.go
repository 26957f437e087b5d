// Package responsewriter records the status and size of intake responses for
// the logging, metrics and tracing middleware.
package responsewriter

import (
	"net/http"
)

// ResponseWriter remembers the first status written and counts body bytes.
type ResponseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

// Wrap returns a recording writer for w. A writer that is already recording
// is returned as is, so stacked middleware share one set of counters.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader forwards the first call only.
func (w *ResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Flush implements http.Flusher when the underlying writer does.
func (w *ResponseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// StatusCode is the status sent to the client, 200 if none was set.
func (w *ResponseWriter) StatusCode() int { return w.status }

// BytesWritten is the response body size so far.
func (w *ResponseWriter) BytesWritten() int { return w.size }

// WroteHeader reports whether the status line has been sent.
func (w *ResponseWriter) WroteHeader() bool { return w.wroteHeader }

// Unwrap supports http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
