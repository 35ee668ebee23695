// Package types provides shared data structures for the formfill backend.
//
// This package defines the records that cross process boundaries, so that the
// page agent, the relay coordinator and the generation proxy agree on one wire
// shape.
//
// Core Types:
//   - FieldContext: snapshot of one form field at the moment of user action
//   - RelayMessage: envelope passed between a page and the relay coordinator
//   - GenerationRequest, GenerationResponse: generation proxy HTTP contract
//
// Example Usage:
//
//	msg := types.NewGatherRequest("bio", 0)
//	ctx := &types.FieldContext{FieldType: "textarea", SourceElementID: "bio"}
//	req := types.GenerationRequest{FieldContext: ctx}
package types
