package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo covers build notes: cache hits, timings.
	SevInfo Severity = iota
	// SevWarning does not fail the unit.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label is the lowercase form used in one-line output.
func (s Severity) Label() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// SeverityFor returns the severity a code is reported with unless a caller
// chooses otherwise. Info codes and observability codes are notes;
// everything else fails the unit.
func SeverityFor(c Code) Severity {
	switch {
	case c >= ObsInfo && c < ObsInfo+1000:
		return SevInfo
	case c == CfgInfo, c == UnitInfo, c == LayInfo, c == RttiInfo:
		return SevInfo
	}
	return SevError
}
