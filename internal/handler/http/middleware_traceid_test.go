package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
)

func TestWithTraceID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantKeep bool
	}{
		{name: "generated when absent", incoming: ""},
		{name: "kept when well formed", incoming: "req-2026_abc", wantKeep: true},
		{name: "uuid kept", incoming: "0192f0c4-5a57-7d3e-9b2a-6a0c2c1f9e11", wantKeep: true},
		{name: "replaced when too long", incoming: strings.Repeat("a", maxTraceIDLength+1)},
		{name: "replaced when it has spaces", incoming: "trace id"},
		{name: "replaced when it has newline", incoming: "abc\ninjected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTestHandler(nil, nil)
			h.logger = &logger.Logger{Logger: zerolog.New(&buf)}

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.FromRequest(r).Info().Msg("inside")
			})

			req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			if tt.incoming != "" {
				req.Header.Set(traceIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.withTraceID(next).ServeHTTP(rr, req)

			got := rr.Header().Get(traceIDHeader)
			if tt.wantKeep {
				assert.Equal(t, tt.incoming, got)
			} else {
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), `"trace_id":"`+got+`"`)
		})
	}
}

func TestValidTraceID(t *testing.T) {
	assert.True(t, validTraceID("A-z_09"))
	assert.False(t, validTraceID(""))
	assert.False(t, validTraceID("a/b"))
	assert.False(t, validTraceID("ünicode"))
}
