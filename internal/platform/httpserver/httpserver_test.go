package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetsWriteDeadlineBeyondHandlerTimeout(t *testing.T) {
	srv := New(":0", http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, ":0", srv.Addr)
	assert.Greater(t, srv.WriteTimeout, handlerTimeout)
	assert.NotNil(t, srv.ErrorLog)
}
