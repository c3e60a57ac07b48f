package testing

import (
	"bytes"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/db"
)

// RunIndexDBBenchmarks runs all benchmarks for an index implementation
func RunIndexDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Add", func(b *testing.B) {
			benchmarkAdd(b, factory())
		})

		b.Run("AddDuplicate", func(b *testing.B) {
			benchmarkAddDuplicate(b, factory())
		})

		b.Run("Has", func(b *testing.B) {
			benchmarkHas(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("Range", func(b *testing.B) {
			benchmarkRange(b, factory())
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// fill adds n random keys and returns them
func fill(b *testing.B, database db.IndexDB, n int) []uint64 {
	b.Helper()
	rng := rand.New(rand.NewSource(int64(n)))
	keys := make([]uint64, 0, n)
	for len(keys) < n {
		k := rng.Uint64()
		if err := database.Add(k, 0); err == nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Add operation with distinct keys from parallel writers
func benchmarkAdd(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd)

	var counter atomic.Uint64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			// spread sequential ids over the key space
			k := counter.Add(1) * 0x9E3779B97F4A7C15
			_ = database.Add(k, 0)
		}
	})
}

// Benchmark for rejected Add operations
func benchmarkAddDuplicate(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd)

	keys := fill(b, database, 10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Add(keys[i%len(keys)], 0)
	}
}

// Benchmark for Has operation on existing keys
func benchmarkHas(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd|db.FeatureHas)

	keys := fill(b, database, 10_000)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = database.Has(keys[i%len(keys)])
			i++
		}
	})
}

// Benchmark for Delete operation, each iteration removes one key
func benchmarkDelete(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd|db.FeatureDelete)

	keys := fill(b, database, b.N)
	b.ResetTimer()
	for _, k := range keys {
		_ = database.Delete(k, 0)
	}
}

// Benchmark for Range operation returning up to 100 keys
func benchmarkRange(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd|db.FeatureRange)

	keys := fill(b, database, 10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = database.Range(keys[i%len(keys)], math.MaxUint64, 100)
	}
}

// Benchmark for Save and Load operations
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory()
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd|db.FeatureSave|db.FeatureLoad)

	fill(b, database, 10_000)

	var snapshot bytes.Buffer
	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			snapshot.Reset()
			if err := database.Save(&snapshot); err != nil {
				b.Fatal(err)
			}
		}
	})

	target := factory()
	defer target.Close()
	b.Run("Load", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(snapshot.Bytes())); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// Benchmark for a realistic mix: 70% Has, 20% Add, 10% Delete
func benchmarkMixedUsage(b *testing.B, database db.IndexDB) {
	defer database.Close()
	requireFeature(b, database, db.FeatureAdd|db.FeatureDelete|db.FeatureHas)

	keys := fill(b, database, 10_000)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			k := keys[rng.Intn(len(keys))]
			switch r := rng.Intn(10); {
			case r < 7:
				_, _ = database.Has(k)
			case r < 9:
				_ = database.Add(k, 0)
			default:
				_ = database.Delete(k, 0)
			}
		}
	})
}
