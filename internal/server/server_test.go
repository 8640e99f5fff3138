package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quillpad/quillpad/internal/config"
)

func TestNew_WriteTimeoutCoversRequestTimeout(t *testing.T) {
	providers := config.ProvidersConfig{Timeout: 60 * time.Second}
	requestTimeout := providers.RequestTimeout()

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, http.NotFoundHandler(), requestTimeout)

	assert.Equal(t, "127.0.0.1:8080", srv.httpServer.Addr)
	assert.Equal(t, 125*time.Second, requestTimeout)
	assert.Greater(t, srv.httpServer.WriteTimeout, requestTimeout)
}
