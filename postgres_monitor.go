package aclkit

import (
	"sync"
	"time"
)

// TransactionMetrics provides transaction performance and failure
// statistics for the PostgreSQL backend.
type TransactionMetrics struct {
	TotalTransactions      int64         `json:"total_transactions"`
	SuccessfulTransactions int64         `json:"successful_transactions"`
	FailedTransactions     int64         `json:"failed_transactions"`
	AverageDuration        time.Duration `json:"average_duration"`
	MaxDuration            time.Duration `json:"max_duration"`
	MinDuration            time.Duration `json:"min_duration"`
	LastReset              time.Time     `json:"last_reset"`
}

// txMonitor holds the internal transaction monitoring state
type txMonitor struct {
	mu            sync.Mutex
	totalCount    int64
	successCount  int64
	failureCount  int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	lastReset     time.Time
}

// newTxMonitor creates a new transaction monitor
func newTxMonitor() *txMonitor {
	return &txMonitor{
		minDuration: time.Hour, // Initialize to a large value
		lastReset:   time.Now(),
	}
}

// record registers a transaction completion with its duration and success
// status
func (tm *txMonitor) record(duration time.Duration, success bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount++
	tm.totalDuration += duration
	if success {
		tm.successCount++
	} else {
		tm.failureCount++
	}
	if duration > tm.maxDuration {
		tm.maxDuration = duration
	}
	if duration < tm.minDuration {
		tm.minDuration = duration
	}
}

// metrics returns the current transaction metrics
func (tm *txMonitor) metrics() TransactionMetrics {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var avgDuration time.Duration
	if tm.totalCount > 0 {
		avgDuration = tm.totalDuration / time.Duration(tm.totalCount)
	}

	return TransactionMetrics{
		TotalTransactions:      tm.totalCount,
		SuccessfulTransactions: tm.successCount,
		FailedTransactions:     tm.failureCount,
		AverageDuration:        avgDuration,
		MaxDuration:            tm.maxDuration,
		MinDuration:            tm.minDuration,
		LastReset:              tm.lastReset,
	}
}

// reset clears all metrics
func (tm *txMonitor) reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.totalCount = 0
	tm.successCount = 0
	tm.failureCount = 0
	tm.totalDuration = 0
	tm.maxDuration = 0
	tm.minDuration = time.Hour
	tm.lastReset = time.Now()
}

// GetTransactionMetrics returns the current transaction performance
// metrics.
func (b *PostgresBackend) GetTransactionMetrics() TransactionMetrics {
	return b.monitor.metrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (b *PostgresBackend) ResetTransactionMetrics() {
	b.monitor.reset()
}

// IsTransactionHealthy checks if transaction performance is within
// acceptable thresholds.
func (b *PostgresBackend) IsTransactionHealthy() bool {
	metrics := b.monitor.metrics()

	// Too few samples to judge
	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	return metrics.AverageDuration <= time.Second
}
