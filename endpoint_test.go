// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HopeOfPaagrio/libio"
)

func TestSocketEndpointFormat(t *testing.T) {
	v4 := libio.NewIPv4Endpoint(net.ParseIP("10.0.0.1"), 53)
	s, err := v4.Format()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:53", s)

	v6 := libio.NewIPv6Endpoint(net.ParseIP("::1"), 53, 0)
	s, err = v6.Format()
	require.NoError(t, err)
	assert.Equal(t, "[::1]:53", s)

	local := libio.NewLocalEndpoint("/tmp/libio.sock")
	s, err = local.Format()
	require.NoError(t, err)
	assert.Equal(t, "unix:/tmp/libio.sock", s)
}

func TestSocketEndpointFormatMemoizes(t *testing.T) {
	e := libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 80)
	first, err := e.Format()
	require.NoError(t, err)
	second, err := e.Format()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSocketEndpointRefcount(t *testing.T) {
	e := libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 80)
	assert.Equal(t, 1, e.Refs())
	e.Retain()
	assert.Equal(t, 2, e.Refs())
	e.Release()
	assert.Equal(t, 1, e.Refs())
}

func TestSocketEndpointEqualsAndCompare(t *testing.T) {
	a := libio.NewIPv4Endpoint(net.ParseIP("10.0.0.1"), 53)
	b := libio.NewIPv4Endpoint(net.ParseIP("10.0.0.1"), 53)
	c := libio.NewIPv4Endpoint(net.ParseIP("10.0.0.2"), 53)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.Equal(t, 0, a.Compare(b))
	assert.Less(t, a.Compare(c), 0)
}

// TestEndpointOrderingStable checks that Compare is antisymmetric for every
// pair drawn from a mixed set of IPv4 and local endpoints.
func TestEndpointOrderingStable(t *testing.T) {
	endpoints := []libio.Endpoint{
		libio.NewLocalEndpoint("/tmp/b"),
		libio.NewIPv4Endpoint(net.ParseIP("10.0.0.2"), 10),
		libio.NewIPv4Endpoint(net.ParseIP("10.0.0.1"), 10),
		libio.NewLocalEndpoint("/tmp/a"),
	}
	for i := 0; i < len(endpoints); i++ {
		for j := i + 1; j < len(endpoints); j++ {
			c1 := endpoints[i].Compare(endpoints[j])
			c2 := endpoints[j].Compare(endpoints[i])
			assert.Equal(t, -c1, c2, "Compare must be antisymmetric")
		}
	}
}

func TestSocketEndpointConvertSameKind(t *testing.T) {
	e := libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 1)
	converted, err := e.Convert(libio.SocketEndpointKind)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Refs())
	converted.Release()
}

func TestSocketEndpointConvertUnsupportedKind(t *testing.T) {
	e := libio.NewIPv4Endpoint(net.ParseIP("127.0.0.1"), 1)
	_, err := e.Convert(libio.EndpointKind(99))
	assert.ErrorIs(t, err, libio.ErrInvalidArgument)
}
