package serializer

import (
	"context"
	"fmt"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/memory"
	"go.uber.org/zap"
)

func benchmarkGraph(children, points int) *models.Base {
	root := models.NewBase("Objects.Model").Set("name", "bench")
	elements := make([]any, children)
	for i := range elements {
		coords := make([]float64, points)
		for j := range coords {
			coords[j] = float64(i*points+j) / 3
		}
		elements[i] = models.NewBase("Objects.Geometry.Polyline").
			Set("index", i).
			Set("value", coords)
	}
	return root.Set("@elements", elements)
}

// BenchmarkSerialize measures decomposition of a two-level graph into a
// memory transport.
func BenchmarkSerialize(b *testing.B) {
	for _, size := range []struct{ children, points int }{
		{10, 100},
		{100, 1000},
		{1000, 10},
	} {
		b.Run(fmt.Sprintf("children=%d/points=%d", size.children, size.points), func(b *testing.B) {
			graph := benchmarkGraph(size.children, size.points)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s := New([]core.Transport{memory.New("bench")}, WithLogger(zap.NewNop()))
				if _, err := s.Serialize(ctx, graph); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSerialize_Chunked measures a sequence large enough to be split.
func BenchmarkSerialize_Chunked(b *testing.B) {
	values := make([]int, 50000)
	for i := range values {
		values[i] = i
	}
	graph := models.NewBase("Base").Set("values", values)
	s := New(nil, WithLogger(zap.NewNop()))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Serialize(context.Background(), graph); err != nil {
			b.Fatal(err)
		}
	}
}
