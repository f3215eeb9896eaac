package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGet(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("yok")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	// Cleanup interval'ı uzun: süre dolumu Get'in kendi kontrolüyle görülmeli.
	c := New[string, string](20*time.Millisecond, time.Hour)
	defer c.Close()

	c.Set("k", "v")

	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "süresi dolan entry okunmamalı")
}

func TestDelete(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestDeleteFunc(t *testing.T) {
	c := New[string, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set("user1:srv1", 1)
	c.Set("user2:srv1", 2)
	c.Set("user1:srv2", 3)

	// srv1'e ait tüm entry'leri invalidate et
	c.DeleteFunc(func(key string) bool {
		return len(key) > 5 && key[len(key)-5:] == ":srv1"
	})

	_, ok := c.Get("user1:srv1")
	assert.False(t, ok)
	_, ok = c.Get("user2:srv1")
	assert.False(t, ok)

	got, ok := c.Get("user1:srv2")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestClearAndLen(t *testing.T) {
	c := New[int, int](time.Minute, time.Minute)
	defer c.Close()

	c.Set(1, 10)
	c.Set(2, 20)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestEvictExpiredRemovesFromMap(t *testing.T) {
	c := New[string, int](10*time.Millisecond, time.Hour)
	defer c.Close()

	c.Set("eski", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("yeni", 2)

	// Get stale entry'yi silmez, sadece görmez — fiziksel silme evict'in işi.
	assert.Equal(t, 2, c.Len())

	c.evictExpired()
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("yeni")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}
