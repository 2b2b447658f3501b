package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("cache", "list", 7, Arg{Name: "page", Value: 1}, Arg{Name: "size", Value: 10})
	b := Key("cache", "list", 7, Arg{Name: "page", Value: 1}, Arg{Name: "size", Value: 10})
	assert.Equal(t, a, b)
}

func TestKeyArgOrderIrrelevant(t *testing.T) {
	a := Key("cache", "list", 7, Arg{Name: "page", Value: 2}, Arg{Name: "search", Value: "milk"})
	b := Key("cache", "list", 7, Arg{Name: "search", Value: "milk"}, Arg{Name: "page", Value: 2})
	assert.Equal(t, a, b)
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("cache", "list", 7, Arg{Name: "page", Value: 1})
	assert.NotEqual(t, base, Key("cache", "list", 7, Arg{Name: "page", Value: 2}), "different arg value")
	assert.NotEqual(t, base, Key("cache", "list", 8, Arg{Name: "page", Value: 1}), "different owner")
	assert.NotEqual(t, base, Key("cache", "stats", 7, Arg{Name: "page", Value: 1}), "different op")
}

func TestKeyStructure(t *testing.T) {
	k := Key("cache", "list", 42, Arg{Name: "page", Value: 1})
	assert.True(t, strings.HasPrefix(k, "cache:list:42:"), k)
	// Digest segment is 16 bytes hex encoded.
	parts := strings.Split(k, ":")
	assert.Len(t, parts, 4)
	assert.Len(t, parts[3], 32)
}

func TestOwnerPatternMatchesOnlyThatOwner(t *testing.T) {
	p := OwnerPattern("cache", "list", 42)
	assert.Equal(t, "cache:list:42:*", p)
	// The owner segment is delimited, so owner 421 cannot match owner 42's pattern.
	assert.False(t, strings.HasPrefix(Key("cache", "list", 421), strings.TrimSuffix(p, "*")))
	assert.True(t, strings.HasPrefix(Key("cache", "list", 42), strings.TrimSuffix(p, "*")))
}
