// Package session keeps the per-category conversation thread identifier.
//
// # Overview
//
// Exactly one live thread id may exist per agent category. It is the only
// conversational state that survives a restart: it is read when a view is
// activated, written after every successful reply and removed when the
// conversation is cleared.
//
// Records live in a store.Store under:
//
//	thread_id_general
//	thread_id_sports
//	thread_id_finance
//
// # Failure Policy
//
// Storage failures never reach the user. Load reports a missing id on any
// error, Save and Clear return errors the caller is expected to log and
// ignore. ClearRemote only drops the local record once the remote service
// acknowledged the deletion.
package session
