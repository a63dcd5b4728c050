package signalcache

import (
	"testing"
	"time"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

func testKey() Key {
	return Key{Exchange: currency.Binance, Base: currency.BTC, Quoted: currency.USDT, Strategy: "main"}
}

func TestCacheSeenUnknownKey(t *testing.T) {
	c := New()
	candle := market.Candle{Timestamp: time.Now(), Close: 100}
	if c.Seen(testKey(), candle) {
		t.Errorf("an empty cache should never report Seen")
	}
}

func TestCacheUpdateThenSeen(t *testing.T) {
	c := New()
	key := testKey()
	candle := market.Candle{Timestamp: time.Now(), Close: 100}

	c.Update(key, candle)
	if !c.Seen(key, candle) {
		t.Errorf("the exact candle just recorded should be Seen")
	}

	next := candle
	next.Close = 101
	if c.Seen(key, next) {
		t.Errorf("a differing candle should not be Seen")
	}
}

func TestCacheGet(t *testing.T) {
	c := New()
	key := testKey()
	if _, ok := c.Get(key); ok {
		t.Errorf("Get on an empty cache should report not-ok")
	}
	candle := market.Candle{Timestamp: time.Now(), Close: 100}
	c.Update(key, candle)
	got, ok := c.Get(key)
	if !ok || !got.Equal(candle) {
		t.Errorf("Get() = (%v, %v), want (%v, true)", got, ok, candle)
	}
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	c := New()
	key := testKey()
	c.Update(key, market.Candle{Timestamp: time.Now(), Close: 100})

	snap := c.Snapshot()
	snap[key] = market.Candle{Close: 999}

	got, _ := c.Get(key)
	if got.Close == 999 {
		t.Errorf("mutating the Snapshot map should not affect the cache")
	}
}

func TestCacheDistinctKeysDoNotCollide(t *testing.T) {
	c := New()
	keyA := testKey()
	keyB := keyA
	keyB.Strategy = "other"

	candle := market.Candle{Timestamp: time.Now(), Close: 100}
	c.Update(keyA, candle)

	if c.Seen(keyB, candle) {
		t.Errorf("a different strategy key should have an independent cache slot")
	}
}
