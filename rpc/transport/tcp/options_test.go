package tcp

import (
	"net"
	"testing"

	"github.com/ValentinKolb/dIdx/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	err = applyOptions(conn,
		common.SocketConf{WriteBufferSize: 64 * 1024, ReadBufferSize: 64 * 1024},
		common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30, TCPLingerSec: 1},
	)
	assert.NoError(t, err)

	server, ok := <-accepted
	require.True(t, ok)
	defer server.Close()
	assert.NoError(t, applyOptions(server, common.SocketConf{}, common.TCPConf{}))
}

func TestApplyOptionsIgnoresOtherConnections(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	assert.NoError(t, applyOptions(a, common.SocketConf{WriteBufferSize: 1}, common.TCPConf{TCPNoDelay: true}))
}
