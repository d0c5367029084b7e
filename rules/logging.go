//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// ModuleLogger flags direct use of the standard loggers inside internal
// packages, which bypasses module levels and trace ids.
func ModuleLogger(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`slog.Default()`,
		`slog.Info($*_)`,
		`slog.Error($*_)`,
		`slog.Warn($*_)`,
		`slog.Debug($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().PkgPath.Matches(`/internal/logger$`)).
		Report("use the package GetLogger() instead of the standard logger")
}

// DriveErrorCodes flags string matching on error text; Drive failures carry a Code.
func DriveErrorCodes(m dsl.Matcher) {
	m.Match(
		`strings.Contains($err.Error(), $_)`,
		`$err.Error() == $_`,
	).
		Where(m["err"].Type.Implements("error")).
		Report("inspect the error with errors.Is, errors.As or drive.CodeOf instead of its text")
}
