// Package redis provides Redis-backed checkpoint storage.
//
// Each checkpoint is one JSON string under "<prefix>checkpoint:<id>". A TTL
// is applied with the key's expiry, and Take uses GETDEL so a checkpoint is
// consumed at most once even across processes.
//
// # Basic Usage
//
//	s := redis.NewRedisCheckpointStore(redis.RedisOptions{
//		Addr:   "localhost:6379",
//		Prefix: "careergraph:",   // Optional key prefix
//		TTL:    24 * time.Hour,   // Optional TTL for checkpoints
//	})
//	defer s.Close()
package redis
