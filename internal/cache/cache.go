// Package cache holds the result caches and Redis building blocks behind
// the DIGIPIN service.
package cache

// Results caches the code lists returned by neighbourhood queries.
type Results interface {
	Get(key string) ([]string, bool)
	Add(key string, codes []string)
	Len() int
	Purge()
}
