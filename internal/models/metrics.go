package models

import "time"

// SystemMetrics is the admin-facing snapshot of service health counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	StoreOperations          uint64    `json:"storeOperations"`
	StaleWrites              uint64    `json:"staleWrites"`
	PaymentsSucceeded        uint64    `json:"paymentsSucceeded"`
	PaymentsFailed           uint64    `json:"paymentsFailed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
