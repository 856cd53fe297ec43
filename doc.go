// Package goAccount implements the account lifecycle around a document
// store: registration, email confirmation, password reset and credential
// checks.
//
// Confirmation and reset both hand the user a single-use secret token. The
// raw token leaves the process once, inside a link sent by a [Notifier]; the
// store only ever sees a SHA-256 digest. Consuming a token is one conditional
// update in the store, so two concurrent requests with the same token cannot
// both succeed. Unknown, expired, replayed and malformed tokens all return
// [ErrInvalidOrExpiredToken].
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface: [Engine], [Builder], [Config] and the value
// types. Flow orchestration lives in internal/flows and persistence behind the
// store.Store interface, with MongoDB, Redis and in-memory implementations
// under store/. Email rendering and delivery live in notify/.
//
// # What this package must NOT do
//
//   - Return password hashes or token digests from any public method.
//   - Reveal through errors or results whether a reset email has an account.
//   - Import any sub-package that re-imports goAccount.
package goAccount
