package vectorstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestProductionHardening_HealthCallbacksAllRun validates that every registered
// callback runs at least once under high-frequency health changes. Each
// notification starts one goroutine per callback; there is no bound.
func TestProductionHardening_HealthCallbacksAllRun(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping validation test in short mode")
	}

	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := NewMockHealthChecker()
	monitor := NewHealthMonitor(ctx, checker, 100*time.Millisecond, logger)

	// Register 100 callbacks
	callbackCount := 100
	var wg sync.WaitGroup
	callbackExecutions := make([]int, callbackCount)
	var mu sync.Mutex

	for i := 0; i < callbackCount; i++ {
		idx := i
		err := monitor.RegisterCallback(func(healthy bool) {
			mu.Lock()
			callbackExecutions[idx]++
			mu.Unlock()
			// Simulate slow callback (10ms)
			time.Sleep(10 * time.Millisecond)
		})
		assert.NoError(t, err, "Failed to register callback %d", i)
	}

	monitor.Start()

	// Trigger rapid health changes (100 changes in 1 second)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			checker.SetHealthy(j%2 == 0)
			monitor.updateHealth(j%2 == 0)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	wg.Wait()
	time.Sleep(200 * time.Millisecond) // Allow callbacks to complete

	monitor.Stop()

	// Verify: All callbacks should have been executed at least once
	mu.Lock()
	defer mu.Unlock()
	for i, count := range callbackExecutions {
		assert.Greater(t, count, 0, "Callback %d was never executed", i)
	}

	t.Logf("✅ Health monitor ran %d callbacks with rapid health changes", callbackCount)
}

// TestProductionHardening_CircuitBreakerReset validates the circuit breaker
// reset mechanism at max failures.
func TestProductionHardening_CircuitBreakerReset(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping validation test in short mode")
	}

	cb := NewCircuitBreaker(5, 1*time.Second)

	// Force failures to max int32
	cb.failures.Store(2147483647) // math.MaxInt32

	// Record another failure - should reset to threshold
	cb.RecordFailure()

	// Verify circuit breaker is still functional
	assert.Equal(t, "open", cb.State(), "Circuit should be open")
	assert.Equal(t, int32(5), cb.failures.Load(), "Failures should reset to threshold")

	// Wait for reset period
	time.Sleep(1100 * time.Millisecond)

	// Circuit should allow one request (half-open)
	allowed := cb.Allow()
	assert.True(t, allowed, "Circuit should allow request after reset period")
	assert.Equal(t, "half-open", cb.State(), "Circuit should be half-open")

	// Success should close the circuit
	cb.RecordSuccess()
	assert.Equal(t, "closed", cb.State(), "Circuit should be closed after success")
	assert.Equal(t, int32(0), cb.failures.Load(), "Failures should be reset to 0")

	t.Logf("✅ Circuit breaker reset mechanism prevents max failure deadlock")
}
