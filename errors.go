// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

import "errors"

// Distinguished errors, modeled on the platform errno codes they replace
// (EBUSY, EINVAL, EBADF, ENOTSUP, EPERM, EAFNOSUPPORT). Go has no
// per-goroutine errno slot; since the reactor is already confined to a
// single goroutine these are returned directly as error values instead.
var (
	// ErrBusy is returned when an event is already attached, or a backend
	// fd/direction slot is already occupied (EBUSY).
	ErrBusy = errors.New("libio: already attached")

	// ErrInvalidArgument is returned for detaching an unattached event,
	// an unsupported endpoint conversion, or a fd the select backend
	// cannot watch (EINVAL).
	ErrInvalidArgument = errors.New("libio: invalid argument")

	// ErrNotImplemented is returned when a concrete queue or backend does
	// not implement a requested operation (EBADF).
	ErrNotImplemented = errors.New("libio: not implemented by this backend")

	// ErrNotSupported is returned when an event kind is not in a
	// reactor's accepted-kinds set, or a parameter tag is unknown
	// (ENOTSUP).
	ErrNotSupported = errors.New("libio: not supported")

	// ErrPermission is returned when setting a read-only parameter
	// (EPERM).
	ErrPermission = errors.New("libio: permission denied")

	// ErrAddressFamily is returned when an endpoint cannot be converted
	// to socket form, or its family is unusable for the requested
	// operation (EAFNOSUPPORT).
	ErrAddressFamily = errors.New("libio: address family not supported")
)
