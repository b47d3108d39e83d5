// Package auxrepo caches reads for repositories backed by the auxiliary
// relational tables an engine file can host next to its key/value table.
//
// The key/value side of the engine has its own row cache (see kvstore and
// cache.Strategy). Auxiliary tables are ordinary relational tables accessed
// through go-repository-bun repositories, so their read patterns are query
// shaped rather than key shaped: the same List or GetByID call repeats with
// the same criteria, and the win is memoizing whole query results. Repo
// wraps such a repository, serves repeated reads from a fetch-through
// cache, and drops the table's cached results whenever the repository
// performs a write.
//
// Repo deliberately exposes the subset of the repository surface a cached
// call path needs. Everything else (transactions, raw SQL, force deletes)
// should go straight to the base repository via Base(), which is also the
// honest choice: calls inside a transaction must not be served from, or
// recorded into, a cache that outlives the transaction's fate.
package auxrepo
