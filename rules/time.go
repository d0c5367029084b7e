//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeDateTimeConstants flags reference-time literals that have named constants.
func TimeDateTimeConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report(`use $t.Format(time.DateTime)`).
		Suggest(`$t.Format(time.DateTime)`)

	m.Match(`time.Parse("2006-01-02 15:04:05", $s)`).
		Report(`use time.Parse(time.DateTime, $s)`).
		Suggest(`time.Parse(time.DateTime, $s)`)

	m.Match(`$t.Format("2006-01-02")`).
		Report(`use $t.Format(time.DateOnly)`).
		Suggest(`$t.Format(time.DateOnly)`)

	m.Match(`time.Parse("2006-01-02", $s)`).
		Report(`use time.Parse(time.DateOnly, $s)`).
		Suggest(`time.Parse(time.DateOnly, $s)`)
}

// UTCBackupNames flags local-time formatting in backup file names; Drive
// names are always built from UTC timestamps.
func UTCBackupNames(m dsl.Matcher) {
	m.Match(`time.Now().Format($layout)`).
		Where(m.File().PkgPath.Matches(`/cmd/backup$|/internal/drive$`)).
		Report("format backup timestamps from time.Now().UTC()")
}
