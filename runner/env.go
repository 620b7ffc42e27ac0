// Package runner executes the three action primitives (fetch_url, exec,
// write_file) inside the isolated environment an action runs under, and
// resolves placeholders against each definition's growing set of prior
// action outputs.
package runner

import (
	"fmt"
)

// FixedEnv returns the baseline environment variables every Exec action
// starts from, before the action's own env overrides are layered in. The
// values are a literal part of the wire contract and must not be adjusted
// per-platform.
func FixedEnv(out string) map[string]string {
	tmp := fmt.Sprintf("%s/tmp", out)
	return map[string]string{
		"PATH":              "/path-not-set",
		"HOME":              "/homeless-shelter",
		"TMPDIR":            tmp,
		"TMP":               tmp,
		"TEMP":              tmp,
		"TEMPDIR":           tmp,
		"out":               out,
		"LANG":              "C",
		"LC_ALL":            "C",
		"SOURCE_DATE_EPOCH": "315532800",
	}
}
