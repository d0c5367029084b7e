//go:build ruleguard

// Package gorules holds ruleguard checks run by golangci-lint's gocritic.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the Add/Done goroutine pattern that wg.Go replaces.
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    serve()
//	}()
//
// becomes
//
//	wg.Go(serve)
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done").
		Suggest("$wg.Go(func() { $body })")

	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }()")
}

// ContextAwareSleep flags time.Sleep outside tests. Waits in the worker and
// commands must end when the context is cancelled.
func ContextAwareSleep(m dsl.Matcher) {
	m.Match(`time.Sleep($d)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("time.Sleep ignores cancellation; select on ctx.Done() and a timer instead")
}
