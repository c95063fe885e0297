// Package redis implements store.Store using Redis, for registries that
// must survive a process restart. Each job is a Redis Hash; a Sorted Set
// keyed by creation time drives newest-first listing.
//
// The caller owns the Redis client lifecycle — this package never closes
// it. Pass the client through the constructor:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
//
// The store relies on the service's one-writer-per-job discipline: state
// transitions are checked read-then-write without a Redis-side lock.
package redis
