// Package generation implements the generation proxy: it authenticates the
// caller's bearer token, resolves the caller's stored vendor key, builds a
// prompt from the field context and returns the vendor's suggestion.
//
// Each request walks Unauthenticated -> Authenticated -> KeyResolved ->
// PromptBuilt -> VendorCalled -> Responded. Any step can end the request with
// a fixed status and message; nothing is retried. Callers only ever see the
// fixed messages, full error detail goes to the log.
package generation
