package mask

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

type countingBuilder struct {
	calls atomic.Int32
	err   error
}

func (b *countingBuilder) BuildMask(area types.TargetArea, land geo.Land, t geo.Transform, width, height int) (Mask, error) {
	b.calls.Add(1)
	if b.err != nil {
		return Mask{}, b.err
	}
	return NewMasker().BuildMask(area, land, t, width, height)
}

func TestCacheHitAfterMiss(t *testing.T) {
	inner := &countingBuilder{}
	var hits, misses int
	c := NewCache(inner, 4, func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	land := geo.NewLand("island", orb.Polygon{square(2, 2, 5, 5)})
	tr := gridTransform(t)

	first, err := c.BuildMask(testArea, land, tr, 10, 10)
	require.NoError(t, err)
	second, err := c.BuildMask(testArea, land, tr, 10, 10)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, c.Len())
}

func TestCacheKeysOnShapeAndLand(t *testing.T) {
	inner := &countingBuilder{}
	c := NewCache(inner, 8, nil)
	tr := gridTransform(t)

	a := geo.NewLand("a", orb.Polygon{square(2, 2, 5, 5)})
	b := geo.NewLand("b", orb.Polygon{square(1, 1, 3, 3)})

	_, err := c.BuildMask(testArea, a, tr, 10, 10)
	require.NoError(t, err)
	_, err = c.BuildMask(testArea, b, tr, 10, 10)
	require.NoError(t, err)
	_, err = c.BuildMask(testArea, a, tr, 10, 5)
	require.NoError(t, err)

	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, 3, c.Len())
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	inner := &countingBuilder{err: errors.New("boom")}
	c := NewCache(inner, 4, nil)
	tr := gridTransform(t)

	for i := 0; i < 3; i++ {
		_, err := c.BuildMask(testArea, geo.NewLand("x"), tr, 10, 10)
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), inner.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	inner := &countingBuilder{}
	c := NewCache(inner, 2, nil)
	tr := gridTransform(t)

	a := geo.NewLand("a")
	b := geo.NewLand("b")
	d := geo.NewLand("d")

	for _, land := range []geo.Land{a, b, a, d} {
		_, err := c.BuildMask(testArea, land, tr, 10, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int32(3), inner.calls.Load())

	// b was evicted, a survived
	_, err := c.BuildMask(testArea, a, tr, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())
	_, err = c.BuildMask(testArea, b, tr, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(4), inner.calls.Load())
}

func TestCacheConcurrentMissesBuildOnce(t *testing.T) {
	inner := &countingBuilder{}
	c := NewCache(inner, 4, nil)
	land := geo.NewLand("island", orb.Polygon{square(2, 2, 5, 5)})
	tr := gridTransform(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.BuildMask(testArea, land, tr, 10, 10)
			assert.NoError(t, err)
			assert.Equal(t, 91, m.Count())
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int32(16))
	assert.Equal(t, 1, c.Len())
}
