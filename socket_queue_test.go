// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package libio_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/HopeOfPaagrio/libio"
)

// TestSocketQueueLoopback covers two UDP datagram queues on loopback: one
// sends, the other receives and recovers
// the sender's address.
func TestSocketQueueLoopback(t *testing.T) {
	const fixedPort = 53211
	server, err := libio.NewSocketQueue(unix.AF_INET,
		nil, libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), fixedPort), nil)
	require.NoError(t, err)
	defer server.Close()

	client, err := libio.NewSocketQueue(unix.AF_INET,
		libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), fixedPort), nil, nil)
	require.NoError(t, err)
	defer client.Close()

	n, err := client.Send([][]byte{[]byte("hello "), []byte("world")}, nil)
	require.NoError(t, err)
	assert.Equal(t, len("hello world"), n)

	var from libio.Endpoint
	buf := make([]byte, 64)
	n, err = server.Recv([][]byte{buf}, &from)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
	require.NotNil(t, from)
	defer from.Release()

	formatted, err := from.Format()
	require.NoError(t, err)
	assert.Contains(t, formatted, "127.0.0.1:")
}

func TestSocketQueueRecvAllocating(t *testing.T) {
	server, err := libio.NewSocketQueue(unix.AF_INET,
		nil, libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 53212), nil)
	require.NoError(t, err)
	defer server.Close()

	client, err := libio.NewSocketQueue(unix.AF_INET,
		libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 53212), nil, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Send([][]byte{[]byte("payload")}, nil)
	require.NoError(t, err)

	buf, err := server.RecvAllocating(nil)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf))
}

func TestSocketQueueMaxSize(t *testing.T) {
	q, err := libio.NewSocketQueue(unix.AF_INET, nil,
		libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 0), nil)
	require.NoError(t, err)
	defer q.Close()

	size, err := q.MaxSize()
	require.NoError(t, err)
	assert.Greater(t, size, 0)
}

func TestSocketQueueInitParams(t *testing.T) {
	q, err := libio.NewSocketQueue(unix.AF_INET, nil,
		libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 0), []libio.ParamInit{
			{Param: libio.ParamReuseLocal, Value: true},
		})
	require.NoError(t, err)
	defer q.Close()

	v, err := q.Get(libio.ParamReuseLocal)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
