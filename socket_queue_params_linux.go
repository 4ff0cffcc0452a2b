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
)

// Get implements Queue's parameter protocol for the socket-level
// parameters: v6only, mcast_hops, reuselocal. mcast_join/mcast_leave are
// write-only actions; mcast_loop is get/settable.
func (q *socketQueue) Get(p *Param) (interface{}, error) {
	switch p {
	case ParamV6Only:
		n, err := unix.GetsockoptInt(q.fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY)
		if err != nil {
			return nil, errors.Wrap(err, "getsockopt IPV6_V6ONLY")
		}
		return n != 0, nil
	case ParamMcastHops:
		return q.getMcastHops()
	case ParamReuseLocal:
		n, err := unix.GetsockoptInt(q.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR)
		if err != nil {
			return nil, errors.Wrap(err, "getsockopt SO_REUSEADDR")
		}
		return n != 0, nil
	case ParamMcastLoop:
		return q.getMcastLoop()
	default:
		return nil, errors.Wrapf(ErrNotSupported, "parameter %s not known to socket queue", p)
	}
}

// Set implements Queue's parameter protocol.
func (q *socketQueue) Set(p *Param, value interface{}) error {
	switch p {
	case ParamV6Only:
		v, ok := value.(bool)
		if !ok {
			return ErrInvalidArgument
		}
		return q.setBoolOpt(unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, v, "IPV6_V6ONLY")
	case ParamMcastHops:
		v, ok := value.(int)
		if !ok {
			return ErrInvalidArgument
		}
		return q.setMcastHops(v)
	case ParamReuseLocal:
		v, ok := value.(bool)
		if !ok {
			return ErrInvalidArgument
		}
		return q.setBoolOpt(unix.SOL_SOCKET, unix.SO_REUSEADDR, v, "SO_REUSEADDR")
	case ParamMcastLoop:
		v, ok := value.(bool)
		if !ok {
			return ErrInvalidArgument
		}
		return q.setMcastLoop(v)
	case ParamMcastJoin:
		return q.mcastMembership(value, true)
	case ParamMcastLeave:
		return q.mcastMembership(value, false)
	default:
		return errors.Wrapf(ErrNotSupported, "parameter %s not known to socket queue", p)
	}
}

func (q *socketQueue) setBoolOpt(level, opt int, v bool, name string) error {
	n := 0
	if v {
		n = 1
	}
	if err := unix.SetsockoptInt(q.fd, level, opt, n); err != nil {
		return errors.Wrapf(err, "setsockopt %s", name)
	}
	return nil
}

func (q *socketQueue) getMcastHops() (interface{}, error) {
	if q.af == unix.AF_INET6 {
		n, err := unix.GetsockoptInt(q.fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_HOPS)
		if err != nil {
			return nil, errors.Wrap(err, "getsockopt IPV6_MULTICAST_HOPS")
		}
		return n, nil
	}
	n, err := unix.GetsockoptInt(q.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL)
	if err != nil {
		return nil, errors.Wrap(err, "getsockopt IP_MULTICAST_TTL")
	}
	return n, nil
}

func (q *socketQueue) setMcastHops(v int) error {
	if q.af == unix.AF_INET6 {
		if err := unix.SetsockoptInt(q.fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_HOPS, v); err != nil {
			return errors.Wrap(err, "setsockopt IPV6_MULTICAST_HOPS")
		}
		return nil
	}
	if err := unix.SetsockoptInt(q.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, v); err != nil {
		return errors.Wrap(err, "setsockopt IP_MULTICAST_TTL")
	}
	return nil
}

func (q *socketQueue) getMcastLoop() (interface{}, error) {
	if q.af == unix.AF_INET6 {
		n, err := unix.GetsockoptInt(q.fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_LOOP)
		if err != nil {
			return nil, errors.Wrap(err, "getsockopt IPV6_MULTICAST_LOOP")
		}
		return n != 0, nil
	}
	n, err := unix.GetsockoptInt(q.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP)
	if err != nil {
		return nil, errors.Wrap(err, "getsockopt IP_MULTICAST_LOOP")
	}
	return n != 0, nil
}

func (q *socketQueue) setMcastLoop(v bool) error {
	n := 0
	if v {
		n = 1
	}
	if q.af == unix.AF_INET6 {
		if err := unix.SetsockoptInt(q.fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_LOOP, n); err != nil {
			return errors.Wrap(err, "setsockopt IPV6_MULTICAST_LOOP")
		}
		return nil
	}
	if err := unix.SetsockoptInt(q.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, n); err != nil {
		return errors.Wrap(err, "setsockopt IP_MULTICAST_LOOP")
	}
	return nil
}

// mcastMembership implements mcast_join/mcast_leave: value is an Endpoint
// reference, converted to a socket endpoint, then an add-/drop-membership
// call is issued per address family.
func (q *socketQueue) mcastMembership(value interface{}, join bool) error {
	ep, ok := value.(Endpoint)
	if !ok {
		return ErrInvalidArgument
	}
	sock, err := ep.Convert(SocketEndpointKind)
	if err != nil {
		return err
	}
	defer sock.Release()
	se := sock.(*socketEndpoint)

	if se.Family() == unix.AF_INET6 {
		mreq := &unix.IPv6Mreq{}
		copy(mreq.Multiaddr[:], se.ip.To16())
		opt := unix.IPV6_JOIN_GROUP
		if !join {
			opt = unix.IPV6_LEAVE_GROUP
		}
		if err := unix.SetsockoptIPv6Mreq(q.fd, unix.IPPROTO_IPV6, opt, mreq); err != nil {
			return errors.Wrap(err, "setsockopt IPV6 membership")
		}
		return nil
	}

	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], se.ip.To4())
	opt := unix.IP_ADD_MEMBERSHIP
	if !join {
		opt = unix.IP_DROP_MEMBERSHIP
	}
	if err := unix.SetsockoptIPMreq(q.fd, unix.IPPROTO_IP, opt, mreq); err != nil {
		return errors.Wrap(err, "setsockopt IP membership")
	}
	return nil
}
