package mirror

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceCollapsesBursts(t *testing.T) {
	var mu sync.Mutex
	var writes [][]byte

	m := newMirror(50*time.Millisecond, func(key string, payload []byte) {
		mu.Lock()
		writes = append(writes, payload)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		snapshot := []byte{byte('0' + i)}
		m.schedule("k", func() ([]byte, error) { return snapshot, nil })
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, writes, 1, "burst of mutations must collapse into one write")
	assert.Equal(t, []byte("4"), writes[0], "latest snapshot wins")
}

func TestDebounceSeparateKeys(t *testing.T) {
	var mu sync.Mutex
	written := map[string]int{}

	m := newMirror(20*time.Millisecond, func(key string, payload []byte) {
		mu.Lock()
		written[key]++
		mu.Unlock()
	})

	m.schedule("a", func() ([]byte, error) { return []byte("a"), nil })
	m.schedule("b", func() ([]byte, error) { return []byte("b"), nil })

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, written["a"])
	assert.Equal(t, 1, written["b"])
}

func TestDisabledMirrorIsNoop(t *testing.T) {
	std = nil
	assert.NotPanics(t, func() {
		SyncUser("03001234567")
		SyncUsers()
		SyncPlans()
	})
}
