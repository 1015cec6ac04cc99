package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch, clock.Now(), "reading does not advance")

	assert.Equal(t, Epoch.Add(time.Hour), clock.Advance(time.Hour))
	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())

	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	clock := NewFixedClock(Epoch)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()
	assert.Equal(t, Epoch.Add(goroutines*time.Second), clock.Now())
}

func TestNewMemoryExecutor_LoadsCompany(t *testing.T) {
	m := NewMemoryExecutor(t, Company()...)

	graphs, err := m.Store().Graphs(context.Background())
	require.NoError(t, err)
	assert.Len(t, graphs, len(Company()))
}
