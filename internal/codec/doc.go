// Package codec converts domain values to and from protobuf well-known types.
//
// Snapshots and sensors travel as structpb.Struct both on the gRPC wire and
// inside the JSON state file, so one set of field names serves every layer.
package codec
