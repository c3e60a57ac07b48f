package serializer

import (
	"errors"
	"sort"
	"testing"

	"github.com/ValentinKolb/dIdx/rpc/common"
)

// benchCase is one message kind as it appears on the wire between client and server
type benchCase struct {
	name string
	msg  common.Message
}

// rangeKeys returns n keys spaced like ids handed out by the id manager
func rangeKeys(n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = 0x9E3779B97F4A7C15 * uint64(i+1)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func benchCases() []benchCase {
	return []benchCase{
		{"add", *common.NewIdxAddRequest(0x9E3779B97F4A7C15)},
		{"add_ok", *common.NewIdxAddResponse(nil)},
		{"add_duplicate", *common.NewIdxAddResponse(errors.New("store error (code 4): db: duplicate key"))},
		{"has_ok", *common.NewIdxHasResponse(true, nil)},
		{"len_ok", *common.NewIdxLenResponse(1<<20, nil)},
		{"range", *common.NewIdxRangeRequest(1<<32, 1<<40, 500)},
		{"range_ok_16", *common.NewIdxRangeResponse(rangeKeys(16), nil)},
		{"range_ok_4096", *common.NewIdxRangeResponse(rangeKeys(4096), nil)},
		{"dump_ok_64k", *common.NewIdxDumpResponse(make([]byte, 64*1024), nil)},
	}
}

// eachCase runs fn as a sub-benchmark for every format and message kind
func eachCase(b *testing.B, fn func(b *testing.B, s IRPCSerializer, msg common.Message)) {
	for format, factory := range testSerializers {
		for _, c := range benchCases() {
			b.Run(format+"/"+c.name, func(b *testing.B) {
				fn(b, factory(), c.msg)
			})
		}
	}
}

func BenchmarkSerialize(b *testing.B) {
	eachCase(b, func(b *testing.B, s IRPCSerializer, msg common.Message) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := s.Serialize(msg); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkDeserialize(b *testing.B) {
	eachCase(b, func(b *testing.B, s IRPCSerializer, msg common.Message) {
		data, err := s.Serialize(msg)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(len(data)))
		b.ReportAllocs()
		b.ResetTimer()

		var out common.Message
		for i := 0; i < b.N; i++ {
			if err := s.Deserialize(data, &out); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkSize only reports the payload size, the timing is meaningless
func BenchmarkSize(b *testing.B) {
	eachCase(b, func(b *testing.B, s IRPCSerializer, msg common.Message) {
		data, err := s.Serialize(msg)
		if err != nil {
			b.Fatal(err)
		}
		b.ReportMetric(float64(len(data)), "payload-bytes")
		b.ReportMetric(0, "ns/op")
	})
}
