// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

//go:build linux
// +build linux

package libio

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/HopeOfPaagrio/libio/internal/rmetrics"
	"github.com/HopeOfPaagrio/libio/internal/rnetutil"
)

// socketQueue is the concrete Queue over a connectionless datagram socket,
// built around raw vectored sendmsg/recvmsg rather than a single-buffer
// net.PacketConn, so callers get genuine gather/scatter I/O.
type socketQueue struct {
	fd      int
	af      int
	to      Endpoint // connected peer, retained; nil if unconnected
	bound   Endpoint
	closed  bool
}

var _ Queue = (*socketQueue)(nil)

// NewSocketQueue allocates a queue: converts to/from to socket
// endpoints, derives af from them if unix.AF_UNSPEC, opens a datagram
// socket, applies each init parameter in order, binds to from if present,
// and connects to to if present. Any failure releases everything it
// acquired, including the converted endpoints.
func NewSocketQueue(af int, to, from Endpoint, initParams []ParamInit) (q Queue, err error) {
	var toSock, fromSock Endpoint
	defer func() {
		if err != nil {
			if toSock != nil {
				toSock.Release()
			}
			if fromSock != nil {
				fromSock.Release()
			}
		}
	}()

	if to != nil {
		toSock, err = to.Convert(SocketEndpointKind)
		if err != nil {
			return nil, errors.Wrap(err, "convert destination endpoint")
		}
	}
	if from != nil {
		fromSock, err = from.Convert(SocketEndpointKind)
		if err != nil {
			return nil, errors.Wrap(err, "convert source endpoint")
		}
	}
	if af == unix.AF_UNSPEC {
		switch {
		case fromSock != nil:
			af = fromSock.(*socketEndpoint).Family()
		case toSock != nil:
			af = toSock.(*socketEndpoint).Family()
		default:
			return nil, errors.Wrap(ErrInvalidArgument, "address family required when no endpoint given")
		}
	}

	fd, err := unix.Socket(af, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "socket")
	}
	q2 := &socketQueue{fd: fd, af: af}
	defer func() {
		if err != nil {
			unix.Close(fd)
			if q2.bound != nil {
				q2.bound.Release()
			}
		}
	}()

	for _, p := range initParams {
		if err = q2.Set(p.Param, p.Value); err != nil {
			return nil, errors.Wrapf(err, "apply init parameter %s", p.Param)
		}
	}

	if fromSock != nil {
		sa, serr := fromSock.(*socketEndpoint).sockaddr()
		if serr != nil {
			return nil, serr
		}
		if err = unix.Bind(fd, sa); err != nil {
			return nil, errors.Wrap(err, "bind")
		}
		q2.bound = fromSock
		fromSock = nil
	}
	if toSock != nil {
		sa, serr := toSock.(*socketEndpoint).sockaddr()
		if serr != nil {
			return nil, serr
		}
		if err = unix.Connect(fd, sa); err != nil {
			return nil, errors.Wrap(err, "connect")
		}
		q2.to = toSock
		toSock = nil
	}
	return q2, nil
}

// ParamInit pairs an init-time parameter with the value to apply; each is
// applied to the queue in order before bind and connect.
type ParamInit struct {
	Param *Param
	Value interface{}
}

// MaxSize implements Queue via the socket's send-buffer size.
func (q *socketQueue) MaxSize() (int, error) {
	n, err := unix.GetsockoptInt(q.fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
	if err != nil {
		return 0, errors.Wrap(err, "getsockopt SO_SNDBUF")
	}
	return n, nil
}

// NextSize implements Queue via the FIONREAD ioctl.
func (q *socketQueue) NextSize() (int, error) {
	n, err := unix.IoctlGetInt(q.fd, unix.FIONREAD)
	if err != nil {
		return 0, errors.Wrap(err, "ioctl FIONREAD")
	}
	return n, nil
}

// Send implements Queue: builds a gather vector from bufs; if to is
// present, converts it and sends via a message-header form; otherwise
// writes the vector on the connected socket.
func (q *socketQueue) Send(bufs [][]byte, to Endpoint) (int, error) {
	var sa unix.Sockaddr
	if to != nil {
		sock, err := to.Convert(SocketEndpointKind)
		if err != nil {
			return -1, err
		}
		defer sock.Release()
		sa, err = sock.(*socketEndpoint).sockaddr()
		if err != nil {
			return -1, err
		}
	}
	n, err := rnetutil.SendmsgVec(q.fd, bufs, sa)
	if err != nil {
		return -1, errors.Wrap(err, "sendmsg")
	}
	rmetrics.Add(rmetrics.QueueBytesSent, uint64(n))
	return n, nil
}

// Recv implements Queue: scatter-receives into bufs; if fromOut is
// non-nil, allocates a sender Endpoint and transfers ownership to the
// caller.
func (q *socketQueue) Recv(bufs [][]byte, fromOut *Endpoint) (int, error) {
	n, sa, err := rnetutil.RecvmsgVec(q.fd, bufs, fromOut != nil)
	if err != nil {
		return -1, errors.Wrap(err, "recvmsg")
	}
	if fromOut != nil {
		if sa == nil {
			*fromOut = nil
		} else {
			ep, cerr := socketEndpointFromSockaddr(sa)
			if cerr != nil {
				return -1, cerr
			}
			*fromOut = ep
		}
	}
	rmetrics.Add(rmetrics.QueueBytesRecv, uint64(n))
	return n, nil
}

// RecvAllocating implements Queue: peek NextSize, allocate exactly that
// many bytes, then receive; on failure the allocation is discarded.
func (q *socketQueue) RecvAllocating(fromOut *Endpoint) ([]byte, error) {
	size, err := q.NextSize()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := q.Recv([][]byte{buf}, fromOut)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// SendEvent implements Queue: a write-readiness event on the socket fd.
func (q *socketQueue) SendEvent(once bool, cb Callback, arg interface{}) *Event {
	return NewWriteEvent(q.fd, once, cb, arg)
}

// RecvEvent implements Queue: a read-readiness event on the socket fd.
func (q *socketQueue) RecvEvent(once bool, cb Callback, arg interface{}) *Event {
	return NewReadEvent(q.fd, once, cb, arg)
}

// Close implements Queue: always releases the socket fd and any retained
// endpoints, even if one of the closes reports an error.
func (q *socketQueue) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	if q.to != nil {
		q.to.Release()
	}
	if q.bound != nil {
		q.bound.Release()
	}
	err := unix.Close(q.fd)
	if err != nil {
		return errors.Wrap(err, "close")
	}
	return nil
}
