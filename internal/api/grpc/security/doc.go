// Package security implements the gRPC transport for the security service.
//
// The service is described by hand over protobuf well-known types: snapshots
// and sensors travel as google.protobuf.Struct, scalar arguments as wrappers.
// The package provides the service descriptor, a server adapting the business
// service, and a typed client.
package security
