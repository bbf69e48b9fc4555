package bucket

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// BenchmarkAllowN measures single-threaded throughput
func BenchmarkAllowN(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.AllowN(ctx, "bench-key", 1, 1000, time.Minute)
	}
}

// BenchmarkAllowN_Parallel measures concurrent throughput on one hot key
func BenchmarkAllowN_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.AllowN(ctx, "bench-key", 1, 1000, time.Minute)
		}
	})
}

// BenchmarkAllowN_HighCardinality_Parallel measures many distinct actors
func BenchmarkAllowN_HighCardinality_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			key := fmt.Sprintf("rl:read:citizen:c-%d", i%65536)
			_, _ = store.AllowN(ctx, key, 1, 100, time.Minute)
		}
	})
}
