package peripheral_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/peripheral"
)

func TestPairingQueue_HeadOnly(t *testing.T) {
	q := peripheral.NewPairingQueue(2)
	links := newLinks(2)

	first, err := q.Push(links[0], 111111)
	require.NoError(t, err)
	assert.True(t, first)
	first, err = q.Push(links[1], 222222)
	require.NoError(t, err)
	assert.False(t, first)

	head, ok := q.Head()
	require.True(t, ok)
	assert.Same(t, links[0], head.Link)
	assert.Equal(t, uint32(111111), head.Passkey)

	ref, passkey, ok := q.Pop()
	require.True(t, ok)
	l, err := ref.Link()
	require.NoError(t, err)
	assert.Same(t, links[0], l)
	assert.Equal(t, uint32(111111), passkey)
	require.NoError(t, ref.Release())

	head, ok = q.Head()
	require.True(t, ok)
	assert.Same(t, links[1], head.Link)
}

func TestPairingQueue_HoldsReferences(t *testing.T) {
	q := peripheral.NewPairingQueue(2)
	l := newLinks(1)[0]

	_, _ = q.Push(l, 1)
	assert.Equal(t, int32(2), l.Refs())

	_, err := q.Push(l, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), l.Refs(), "a link is queued at most once")
	assert.Equal(t, 1, q.Len())
	head, _ := q.Head()
	assert.Equal(t, uint32(2), head.Passkey)

	q.Clear()
	assert.Equal(t, int32(1), l.Refs())
	assert.Equal(t, 0, q.Len())
}

func TestPairingQueue_Full(t *testing.T) {
	q := peripheral.NewPairingQueue(1)
	links := newLinks(2)
	_, _ = q.Push(links[0], 1)

	_, err := q.Push(links[1], 2)
	assert.ErrorIs(t, err, peripheral.ErrQueueFull)
	assert.Equal(t, int32(1), links[1].Refs(), "rejected request holds no reference")
	assert.Equal(t, 1, q.Len())
}

func TestPairingQueue_FailHead(t *testing.T) {
	q := peripheral.NewPairingQueue(3)
	links := newLinks(3)
	_, _ = q.Push(links[0], 1)
	_, _ = q.Push(links[1], 2)

	assert.False(t, q.FailHead(links[1]), "non-head link leaves the queue untouched")
	assert.False(t, q.FailHead(links[2]))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, int32(2), links[1].Refs())

	assert.True(t, q.FailHead(links[0]))
	assert.Equal(t, int32(1), links[0].Refs())
	head, ok := q.Head()
	require.True(t, ok)
	assert.Same(t, links[1], head.Link)
}

func TestPairingQueue_Empty(t *testing.T) {
	q := peripheral.NewPairingQueue(1)
	_, ok := q.Head()
	assert.False(t, ok)
	_, _, ok = q.Pop()
	assert.False(t, ok)
	assert.False(t, q.FailHead(newLinks(1)[0]))
	assert.Empty(t, q.Pending())
}
