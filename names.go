package cachekit

// Default provider names used by the AddDefault* registrations.
const (
	DefaultInMemoryName  = "DefaultInMemory"
	DefaultRedisName     = "DefaultRedis"
	DefaultMemcachedName = "DefaultMemcached"
	DefaultSQLiteName    = "DefaultSQLite"
)

// Configuration sections read by the *FromConfig registrations.
const (
	InMemorySection  = "cachekit:inmemory"
	RedisSection     = "cachekit:redis"
	MemcachedSection = "cachekit:memcached"
	SQLiteSection    = "cachekit:sqlite"
)
