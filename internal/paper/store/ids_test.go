package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDGenerators_NoCollisions(t *testing.T) {
	for _, scheme := range []string{"uuid", "counter"} {
		t.Run(scheme, func(t *testing.T) {
			g, err := NewIDGenerator(scheme)
			require.NoError(t, err)

			const workers, perWorker = 8, 1250
			var mu sync.Mutex
			seen := make(map[string]struct{}, workers*perWorker)
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					local := make([]string, 0, perWorker)
					for i := 0; i < perWorker; i++ {
						local = append(local, g.NewID())
					}
					mu.Lock()
					for _, id := range local {
						seen[id] = struct{}{}
					}
					mu.Unlock()
				}()
			}
			wg.Wait()
			require.Len(t, seen, workers*perWorker)
		})
	}
}

func TestCounterGenerator_Monotonic(t *testing.T) {
	g := NewCounterGenerator("p")
	require.Equal(t, "p_1", g.NewID())
	require.Equal(t, "p_2", g.NewID())
}

func TestNewIDGenerator_Unknown(t *testing.T) {
	g, err := NewIDGenerator("")
	require.NoError(t, err)
	require.IsType(t, UUIDGenerator{}, g)

	_, err = NewIDGenerator("timestamp")
	require.Error(t, err)
}
