package testing

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/ValentinKolb/dIdx/lib/db"
)

// DBFactory is a function that creates a new, empty instance of an IndexDB implementation
type DBFactory func() db.IndexDB

// RunIndexDBTests runs a comprehensive test suite for an IndexDB implementation.
func RunIndexDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Add&Has", func(t *testing.T) {
			testAddHas(t, factory())
		})

		t.Run("DuplicateKey", func(t *testing.T) {
			testDuplicateKey(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("WriteIdx", func(t *testing.T) {
			testWriteIdx(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadInvalid", func(t *testing.T) {
			testLoadInvalid(t, factory())
		})

		t.Run("Dump", func(t *testing.T) {
			testDump(t, factory())
		})

		t.Run("RandomAgainstModel", func(t *testing.T) {
			testRandomAgainstModel(t, factory())
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.IndexDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustLen(t testing.TB, database db.IndexDB) uint64 {
	t.Helper()
	n, err := database.Len()
	if err != nil {
		t.Fatalf("Unexpected error during Len: %v", err)
	}
	return n
}

func mustHas(t testing.TB, database db.IndexDB, key uint64) bool {
	t.Helper()
	ok, err := database.Has(key)
	if err != nil {
		t.Fatalf("Unexpected error during Has(%d): %v", key, err)
	}
	return ok
}

// compareWithModel checks that the index holds exactly the keys of the model, in order
func compareWithModel(t testing.TB, database db.IndexDB, model *roaring64.Bitmap) {
	t.Helper()
	keys, err := database.Range(0, math.MaxUint64, 0)
	if err != nil {
		t.Fatalf("Unexpected error during Range: %v", err)
	}
	want := model.ToArray()
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Key mismatch at position %d: expected %d, got %d", i, want[i], keys[i])
		}
	}
	if n := mustLen(t, database); n != model.GetCardinality() {
		t.Fatalf("Expected Len %d, got %d", model.GetCardinality(), n)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAddHas(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureHas|db.FeatureLen)

	if n := mustLen(t, database); n != 0 {
		t.Fatalf("Expected empty index, got %d keys", n)
	}

	for _, key := range []uint64{42, 0, math.MaxUint64, 7} {
		if err := database.Add(key, 1); err != nil {
			t.Fatalf("Unexpected error during Add(%d): %v", key, err)
		}
		if !mustHas(t, database, key) {
			t.Errorf("Expected key %d to exist after Add", key)
		}
	}

	if mustHas(t, database, 8) {
		t.Errorf("Expected key 8 to not exist")
	}
	if n := mustLen(t, database); n != 4 {
		t.Errorf("Expected 4 keys, got %d", n)
	}
}

func testDuplicateKey(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureLen)

	if err := database.Add(5, 1); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}
	err := database.Add(5, 2)
	if !errors.Is(err, db.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
	if n := mustLen(t, database); n != 1 {
		t.Errorf("Expected 1 key after rejected duplicate, got %d", n)
	}
}

func testDelete(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureDelete|db.FeatureHas)

	for key := uint64(0); key < 100; key++ {
		if err := database.Add(key, key); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	if err := database.Delete(50, 100); err != nil {
		t.Fatalf("Unexpected error during Delete: %v", err)
	}
	if mustHas(t, database, 50) {
		t.Errorf("Expected key 50 to not exist after Delete")
	}

	// deleting a missing key is a no-op
	if err := database.Delete(50, 101); err != nil {
		t.Errorf("Unexpected error deleting a missing key: %v", err)
	}
	if err := database.Delete(1000, 102); err != nil {
		t.Errorf("Unexpected error deleting a missing key: %v", err)
	}
	if n := mustLen(t, database); n != 99 {
		t.Errorf("Expected 99 keys, got %d", n)
	}

	// a deleted key can be added again
	if err := database.Add(50, 103); err != nil {
		t.Errorf("Unexpected error re-adding a deleted key: %v", err)
	}
}

func testRange(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureRange)

	for key := uint64(10); key <= 100; key += 10 {
		if err := database.Add(key, 1); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	tests := []struct {
		name     string
		from, to uint64
		limit    int
		want     []uint64
	}{
		{"inclusive bounds", 20, 50, 0, []uint64{20, 30, 40, 50}},
		{"between keys", 21, 49, 0, []uint64{30, 40}},
		{"limit", 0, math.MaxUint64, 3, []uint64{10, 20, 30}},
		{"single", 70, 70, 0, []uint64{70}},
		{"empty", 71, 79, 0, nil},
		{"reversed", 50, 20, 0, nil},
		{"all", 0, math.MaxUint64, 0, []uint64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.Range(tt.from, tt.to, tt.limit)
			if err != nil {
				t.Fatalf("Unexpected error during Range: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Range(%d, %d, %d) = %v, want %v", tt.from, tt.to, tt.limit, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Range(%d, %d, %d) = %v, want %v", tt.from, tt.to, tt.limit, got, tt.want)
				}
			}
		})
	}
}

func testWriteIdx(t *testing.T, database db.IndexDB) {
	defer database.Close()

	database.SetWriteIdx(10)
	if idx := database.WriteIdx(); idx != 10 {
		t.Errorf("Expected write index 10, got %d", idx)
	}

	// lower indices are ignored
	database.SetWriteIdx(5)
	if idx := database.WriteIdx(); idx != 10 {
		t.Errorf("Expected write index to stay 10, got %d", idx)
	}

	if database.SupportsFeature(db.FeatureAdd) {
		if err := database.Add(1, 20); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
		if idx := database.WriteIdx(); idx != 20 {
			t.Errorf("Expected write index 20 after Add, got %d", idx)
		}
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureSave|db.FeatureLoad|db.FeatureRange)

	model := roaring64.New()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		key := rng.Uint64()
		if model.Contains(key) {
			continue
		}
		model.Add(key)
		if err := database.Add(key, uint64(i)); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	// the target holds other keys that must be replaced
	for key := uint64(0); key < 10; key++ {
		if err := database2.Add(key, 1); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	compareWithModel(t, database2, model)
	compareWithModel(t, database, model)

	if database2.WriteIdx() != database.WriteIdx() {
		t.Errorf("Expected write index %d after Load, got %d", database.WriteIdx(), database2.WriteIdx())
	}
}

func testLoadInvalid(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureLoad|db.FeatureLen)

	if err := database.Add(1, 1); err != nil {
		t.Fatalf("Unexpected error during Add: %v", err)
	}

	inputs := map[string][]byte{
		"empty":     {},
		"bad magic": []byte("NOTANIDX\x01"),
		"truncated": []byte("RBIDX\x00\x00\x00\x01\x00"),
	}
	for name, data := range inputs {
		if err := database.Load(bytes.NewReader(data)); err == nil {
			t.Errorf("Expected error loading %s snapshot", name)
		}
	}

	if n := mustLen(t, database); n != 1 {
		t.Errorf("Expected index to be unchanged after failed loads, got %d keys", n)
	}
}

func testDump(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureDump)

	for _, key := range []uint64{2, 1, 3} {
		if err := database.Add(key, 1); err != nil {
			t.Fatalf("Unexpected error during Add: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := database.Dump(&buf); err != nil {
		t.Fatalf("Unexpected error during Dump: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph G {") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("Expected a digraph, got %q", out)
	}
	if !strings.Contains(out, "2 -> 1;") || !strings.Contains(out, "2 -> 3;") {
		t.Errorf("Expected edges from the root, got %q", out)
	}
}

func testRandomAgainstModel(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureDelete|db.FeatureHas|db.FeatureRange|db.FeatureLen)

	model := roaring64.New()
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 5000; i++ {
		key := uint64(rng.Intn(1000))
		switch rng.Intn(4) {
		case 0:
			if err := database.Delete(key, uint64(i)); err != nil {
				t.Fatalf("Unexpected error during Delete: %v", err)
			}
			model.Remove(key)
		case 1:
			if got := mustHas(t, database, key); got != model.Contains(key) {
				t.Fatalf("Has(%d) = %v, model says %v", key, got, model.Contains(key))
			}
		default:
			err := database.Add(key, uint64(i))
			if model.Contains(key) != errors.Is(err, db.ErrDuplicateKey) {
				t.Fatalf("Add(%d) = %v, model contains key: %v", key, err, model.Contains(key))
			}
			model.Add(key)
		}
	}

	compareWithModel(t, database, model)

	if database.SupportsFeature(db.FeatureCheck) {
		if err := database.Check(); err != nil {
			t.Errorf("Invariant check failed: %v", err)
		}
	}
}

func testConcurrentWriters(t *testing.T, database db.IndexDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureAdd|db.FeatureLen)

	const writers = 8
	const perWriter = 500

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := database.Add(uint64(i*writers+w), uint64(i)); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent Add: %v", err)
	}
	if n := mustLen(t, database); n != writers*perWriter {
		t.Errorf("Expected %d keys, got %d", writers*perWriter, n)
	}
}

func testInfo(t *testing.T, database db.IndexDB) {
	defer database.Close()

	info := database.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected a database type")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s is listed but not supported", f)
		}
	}
}

func testClosed(t *testing.T, database db.IndexDB) {
	if err := database.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}

	if err := database.Add(1, 1); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Add, got %v", err)
	}
	if _, err := database.Has(1); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Has, got %v", err)
	}
}
