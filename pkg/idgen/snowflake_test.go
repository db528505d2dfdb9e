package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_RejectsWorkerID(t *testing.T) {
	_, err := NewSnowflake(maxWorkerID + 1)
	require.Error(t, err)

	_, err = NewSnowflake(-1)
	require.Error(t, err)
}

func TestGenerate_UniqueUnderConcurrency(t *testing.T) {
	sf, err := NewSnowflake(7)
	require.NoError(t, err)

	const workers, perWorker = 8, 500
	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := sf.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestGenerateReceiptNo_Format(t *testing.T) {
	no := GenerateReceiptNo()
	assert.True(t, strings.HasPrefix(no, "PUR"))
	assert.Len(t, no, 3+14+8)

	key := GenerateEventKey()
	assert.True(t, strings.HasPrefix(key, "EVT"))
}
