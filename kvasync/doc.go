// Package kvasync is the async façade over kvstore: every operation
// mirrors its synchronous kvstore.DB counterpart but is dispatched to a
// worker goroutine instead of running on the caller's goroutine. Go has no
// coroutine await, so the suspension point is realized as a future:
// Get/Set/... submit a job and return a *Future[T] whose Await blocks
// until the worker finishes (or the caller's context is canceled --
// cancellation only stops the *caller* from waiting, never the in-flight
// database work, so cache and row state never diverge from what the
// worker actually did).
//
// Writes, and every read that does not use the optional read-only pool,
// are serialized through a single primary lane so submission order is
// preserved exactly (a second physical connection would not help:
// kvstore.DB already pins its *sql.DB to one connection, since SQLite
// allows exactly one writer). The read-only pool is a second, genuinely
// concurrent lane of up to ReadPoolSize separate read-only connections,
// used only by operations classified as read-only.
package kvasync
