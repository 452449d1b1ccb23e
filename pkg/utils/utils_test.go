package utils

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		"EURUSD":   "C:EURUSD",
		"eurusd":   "C:EURUSD",
		"EURUSD+":  "C:EURUSD",
		" gbpusd ": "C:GBPUSD",
		"GOLD":     "C:XAUUSD",
		"gold+":    "C:XAUUSD",
		"EUR/USD":  "C:EURUSD",
		"C:EURUSD": "C:EURUSD",
		"X:BTCUSD": "X:BTCUSD",
		"":         "",
		"+++":      "+++",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTicker(in, DefaultMarketPrefix), "input %q", in)
	}
}

func TestNormalizeTickerIdempotent(t *testing.T) {
	for _, in := range []string{"EURUSD", "eurusd+", "silver", "C:XAUUSD", "us30.cash", "", "-"} {
		once := NormalizeTicker(in, DefaultMarketPrefix)
		assert.Equal(t, once, NormalizeTicker(once, DefaultMarketPrefix), "input %q", in)
	}
}

func TestNormalizeTickerWithoutPrefix(t *testing.T) {
	assert.Equal(t, "EURUSD", NormalizeTicker("eurusd+", ""))
	assert.Equal(t, "EURUSD", NormalizeTicker(NormalizeTicker("eurusd+", ""), ""))
}

func TestNormalizeTickers(t *testing.T) {
	got := NormalizeTickers([]string{"EURUSD+", "eurusd", "GOLD", "", "XAUUSD"}, "C:")
	assert.Equal(t, []string{"C:EURUSD", "C:XAUUSD"}, got)
}

func TestBareTicker(t *testing.T) {
	assert.Equal(t, "EURUSD", BareTicker("C:EURUSD"))
	assert.Equal(t, "EURUSD", BareTicker("EURUSD"))
}

func TestRoundedPtr(t *testing.T) {
	assert.Nil(t, RoundedPtr(math.NaN(), 2))
	v := RoundedPtr(1.23456, 2)
	if assert.NotNil(t, v) {
		assert.Equal(t, 1.23, *v)
	}
}

func TestParseFloatPtr(t *testing.T) {
	assert.Nil(t, ParseFloatPtr("."))
	assert.Nil(t, ParseFloatPtr(""))
	assert.Nil(t, ParseFloatPtr("n/a"))
	v := ParseFloatPtr(" 3.5 ")
	if assert.NotNil(t, v) {
		assert.Equal(t, 3.5, *v)
	}
}

func TestForEachLimitBoundsConcurrency(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var running, peak int32
	var mu sync.Mutex
	seen := map[int]bool{}

	ForEachLimit(context.Background(), 3, items, func(_ context.Context, item int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)

		mu.Lock()
		seen[item] = true
		mu.Unlock()
	})

	assert.Len(t, seen, 20)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestForEachLimitEmpty(t *testing.T) {
	called := false
	ForEachLimit(context.Background(), 2, []string{}, func(context.Context, string) { called = true })
	assert.False(t, called)
}
