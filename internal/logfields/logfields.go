package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyModule     = "module"
	KeyPackage    = "package"
	KeyVersion    = "version"
	KeyDigest     = "digest"
	KeyAlgo       = "hash_algo"
	KeyUnit       = "unit"
	KeyRunID      = "run_id"
	KeyOutcome    = "outcome"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Digest(d string) slog.Attr       { return slog.String(KeyDigest, d) }
func Algo(a string) slog.Attr         { return slog.String(KeyAlgo, a) }
func Unit(u string) slog.Attr         { return slog.String(KeyUnit, u) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
