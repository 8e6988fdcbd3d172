package rediskey

import "fmt"

// Key namespaces shared across the engine.
const (
	OraclePricePrefix = "oracle:price"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildOraclePriceKey returns "oracle:price:{symbol}"
func BuildOraclePriceKey(symbol string) string {
	return NamespaceKey(OraclePricePrefix, symbol)
}
