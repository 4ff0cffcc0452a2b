// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package libio

// Param is a parameter-tag identity, used as an extensible option key for
// Queue.Get/Queue.Set. Identity is the pointer itself: two tags are the
// same parameter iff they are the same *Param.
type Param struct {
	// Name is an optional printable name, used only for diagnostics.
	Name string
}

// String implements fmt.Stringer.
func (p *Param) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.Name
}

// Known parameter tags.
var (
	// ParamV6Only gets/sets the IPV6_V6ONLY socket option. bool.
	ParamV6Only = &Param{Name: "socket_v6only"}
	// ParamMcastHops gets/sets the outgoing multicast TTL/hop-limit. int.
	ParamMcastHops = &Param{Name: "socket_mcast_hops"}
	// ParamReuseLocal gets/sets SO_REUSEADDR. bool.
	ParamReuseLocal = &Param{Name: "socket_reuselocal"}
	// ParamMcastJoin joins a multicast group. value is an Endpoint.
	ParamMcastJoin = &Param{Name: "mcast_join"}
	// ParamMcastLeave leaves a multicast group. value is an Endpoint.
	ParamMcastLeave = &Param{Name: "mcast_leave"}
	// ParamMcastLoop gets/sets multicast loopback. bool.
	ParamMcastLoop = &Param{Name: "mcast_loop"}
	// ParamLimitSend gets/sets the rate limiter's outgoing byte budget
	// per second. Set takes an int or uint64, Get returns a uint64; 0 means
	// unlimited.
	ParamLimitSend = &Param{Name: "limit_send"}
	// ParamLimitRecv gets/sets the rate limiter's incoming byte budget
	// per second. Set takes an int or uint64, Get returns a uint64; 0 means
	// unlimited.
	ParamLimitRecv = &Param{Name: "limit_recv"}
	// ParamRateSend is the read-only observed outgoing bytes/sec of the
	// preceding full second.
	ParamRateSend = &Param{Name: "rate_send"}
	// ParamRateRecv is the read-only observed incoming bytes/sec of the
	// preceding full second.
	ParamRateRecv = &Param{Name: "rate_recv"}
)
