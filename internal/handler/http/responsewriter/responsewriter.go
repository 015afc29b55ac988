// Package responsewriter records what a handler wrote so middleware can log,
// trace and measure the response after the fact.
package responsewriter

import "net/http"

// Recorder wraps an http.ResponseWriter and remembers the status code and body size.
type Recorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

// Wrap returns a Recorder around w. The status defaults to 200 until WriteHeader is called.
func Wrap(w http.ResponseWriter) *Recorder {
	return &Recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the first status code and forwards it.
func (r *Recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// Flush forwards to the wrapped writer when it supports flushing.
func (r *Recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Status returns the status code sent to the client.
func (r *Recorder) Status() int { return r.status }

// Size returns the number of body bytes written.
func (r *Recorder) Size() int { return r.size }

// Unwrap exposes the wrapped writer to http.ResponseController.
func (r *Recorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
