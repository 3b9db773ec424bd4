// Package iface declares the capability contracts of the system. A driver
// module implements one or more of these interfaces and registers them with
// the service locator; services discover their dependencies the same way.
//
// All operations report failure with errcode codes. A partial implementation
// returns errcode.NotImplemented from operations it does not support instead
// of panicking. Optional capabilities are split into small extension
// interfaces the caller type-asserts for.
package iface
