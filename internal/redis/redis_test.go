package redis

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpad/quillpad/internal/config"
)

func TestNewClient_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	mr.Close()

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "pinging redis")
}
