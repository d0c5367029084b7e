//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// BenchmarkLoop flags b.N loops that b.Loop replaces.
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of counting to $b.N")

	m.Match(`for range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }").
		Suggest("for $b.Loop() { $body }")
}
