package tagalloc

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuangTung97/tagalloc/allocator"
)

type number interface {
	~int32 | ~float64
}

func newTestAllocator[T any](t *testing.T) *Allocator[T] {
	t.Helper()
	a, err := New[T](100, WithInvariantChecks(), WithPointerTracking())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func testOne[T number](t *testing.T) {
	a := newTestAllocator[T](t)

	p, err := a.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, a.Construct(p, 0, 2))

	v, err := a.Load(p, 0)
	require.NoError(t, err)
	assert.Equal(t, T(2), v)

	require.NoError(t, a.Destroy(p, 0))
	require.NoError(t, a.Deallocate(p))
	assert.True(t, a.Arena().Validate())
}

func testTen[T number](t *testing.T) {
	a := newTestAllocator[T](t)

	const s = 10
	p, err := a.Allocate(s)
	if a.elemSize*s > 92 {
		assert.ErrorIs(t, err, allocator.ErrOutOfMemory)
		return
	}
	require.NoError(t, err)

	for i := 0; i < s; i++ {
		require.NoError(t, a.Construct(p, i, 2))
	}
	count := 0
	for i := 0; i < s; i++ {
		v, err := a.Load(p, i)
		require.NoError(t, err)
		if v == 2 {
			count++
		}
	}
	assert.Equal(t, s, count)

	for i := s - 1; i >= 0; i-- {
		require.NoError(t, a.Destroy(p, i))
	}
	require.NoError(t, a.Deallocate(p))
	assert.Equal(t, []allocator.Block{{Offset: 0, Size: 92, Free: true}}, a.Arena().Blocks())
}

func testContract[T number](t *testing.T) {
	t.Run("one", testOne[T])
	t.Run("ten", testTen[T])

	t.Run("zero", func(t *testing.T) {
		a := newTestAllocator[T](t)
		p, err := a.Allocate(0)
		assert.NoError(t, err)
		assert.Equal(t, NullPtr, p)
	})

	t.Run("negative", func(t *testing.T) {
		a := newTestAllocator[T](t)
		_, err := a.Allocate(-15)
		assert.ErrorIs(t, err, allocator.ErrInvalidSize)
	})

	t.Run("index-out-of-range", func(t *testing.T) {
		a := newTestAllocator[T](t)
		p, err := a.Allocate(2)
		require.NoError(t, err)

		n, err := a.Len(p)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		assert.ErrorIs(t, a.Construct(p, 2, 1), ErrIndexOutOfRange)
		assert.ErrorIs(t, a.Construct(p, -1, 1), ErrIndexOutOfRange)
		_, err = a.Load(p, 5)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		huge := math.MaxInt/8 + 1
		_, err = a.Load(p, huge)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
		assert.ErrorIs(t, a.Construct(p, huge, 1), ErrIndexOutOfRange)
		assert.ErrorIs(t, a.Destroy(p, math.MaxInt), ErrIndexOutOfRange)
	})

	t.Run("neighbors-untouched", func(t *testing.T) {
		a := newTestAllocator[T](t)
		p1, _ := a.Allocate(1)
		p2, _ := a.Allocate(1)
		p3, _ := a.Allocate(1)

		require.NoError(t, a.Construct(p1, 0, 1))
		require.NoError(t, a.Construct(p2, 0, 2))
		require.NoError(t, a.Construct(p3, 0, 3))
		require.NoError(t, a.Deallocate(p2))

		v1, _ := a.Load(p1, 0)
		v3, _ := a.Load(p3, 0)
		assert.Equal(t, T(1), v1)
		assert.Equal(t, T(3), v3)
	})
}

func TestAllocator_Int32(t *testing.T) {
	testContract[int32](t)
}

func TestAllocator_Float64(t *testing.T) {
	testContract[float64](t)
}

func TestAllocator_Len_FoldedRemainder(t *testing.T) {
	a := newTestAllocator[float64](t)

	p, err := a.Allocate(11)
	require.NoError(t, err)

	// 92 payload bytes, the last 4 are not enough for a twelfth element
	n, err := a.Len(p)
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

type point struct {
	X, Y int32
	Tag  uint16
}

func TestAllocator_Struct(t *testing.T) {
	a, err := New[point](256)
	require.NoError(t, err)

	p, err := a.Allocate(3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Construct(p, i, point{X: int32(i), Y: -int32(i), Tag: uint16(i * 10)}))
	}
	v, err := a.Load(p, 2)
	require.NoError(t, err)
	assert.Equal(t, point{X: 2, Y: -2, Tag: 20}, v)

	require.NoError(t, a.Destroy(p, 2))
	v, err = a.Load(p, 2)
	require.NoError(t, err)
	assert.Equal(t, point{}, v)
}

func TestAllocator_Equal(t *testing.T) {
	a := newTestAllocator[int32](t)
	b := newTestAllocator[int32](t)

	_, _ = a.Allocate(4)
	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))

	c, err := New[int32](200)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestAllocator_ZeroSizedType(t *testing.T) {
	_, err := New[struct{}](100)
	assert.ErrorIs(t, err, allocator.ErrInvalidConfig)
}

func TestAllocator_Options(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := New[int64](1<<12, WithLogger(logger), WithOffHeap(), WithObserver(allocator.NoopObserver{}))
	require.NoError(t, err)

	p, err := a.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, a.Construct(p, 7, 42))
	v, err := a.Load(p, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
	require.NoError(t, a.Deallocate(p))
	require.NoError(t, a.Close())

	assert.Contains(t, buf.String(), `"msg":"allocate"`)
}
