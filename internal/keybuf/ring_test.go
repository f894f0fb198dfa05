package keybuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFO(t *testing.T) {
	for k := 0; k <= Capacity; k++ {
		var r Ring
		for i := 0; i < k; i++ {
			r.Push(byte('a' + i))
		}
		assert.Equal(t, k, r.Len())
		for i := 0; i < k; i++ {
			assert.Equal(t, byte('a'+i), r.Pop(), "k=%d i=%d", k, i)
		}
		assert.Zero(t, r.Pop(), "k=%d: empty after draining", k)
		assert.True(t, r.Empty())
	}
}

func TestPopEmpty(t *testing.T) {
	var r Ring
	assert.Zero(t, r.Pop())
	assert.Zero(t, r.Pop())
	assert.Equal(t, 0, r.Len())
}

func TestOverflowOverwritesOldest(t *testing.T) {
	var r Ring
	for i := 1; i <= Capacity+1; i++ {
		r.Push(byte(i))
	}
	assert.Equal(t, Capacity, r.Len())
	for i := 2; i <= Capacity+1; i++ {
		assert.Equal(t, byte(i), r.Pop())
	}
	assert.Zero(t, r.Pop())
}

func TestWrapAround(t *testing.T) {
	var r Ring
	var want, got []byte
	next := byte('A')
	// interleave so head and tail cross the end of the array several times
	for round := 0; round < 7; round++ {
		for i := 0; i < 4; i++ {
			r.Push(next)
			want = append(want, next)
			next++
		}
		for i := 0; i < 3; i++ {
			got = append(got, r.Pop())
		}
	}
	for !r.Empty() {
		got = append(got, r.Pop())
	}
	assert.Equal(t, want, got)
}

func TestPoppedSlotsAreZeroed(t *testing.T) {
	var r Ring
	r.Push('x')
	r.Push('y')
	r.Pop()
	assert.Zero(t, r.buf[0])
	assert.Equal(t, byte('y'), r.buf[1])
	assert.Zero(t, r.buf[2], "slot after tail stays zeroed")
}

func TestPushedNULLooksEmpty(t *testing.T) {
	var r Ring
	r.Push(0)
	r.Push('a')
	assert.Zero(t, r.Pop(), "NUL is indistinguishable from empty")
	assert.Equal(t, byte('a'), r.Pop())
}

func TestReset(t *testing.T) {
	var r Ring
	r.Push('a')
	r.Reset()
	assert.True(t, r.Empty())
	assert.Zero(t, r.Pop())
}
