// Package keystore resolves a user's stored completion-vendor API key.
//
// Two backends share the user_llm_api_keys(user_id, api_key_encrypted)
// layout:
//   - PostgREST: the hosted Supabase table, read with the service role key
//   - SQLite: a self-hosted table for running the proxy without Supabase
//
// A missing row is ErrNotFound, which callers treat as an expected state.
// Values may be sealed with a Sealer; without a secret they are stored as is.
package keystore
