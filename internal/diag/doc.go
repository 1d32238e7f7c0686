// Package diag defines the diagnostic model shared by manifest loading,
// unit loading and descriptor generation.
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable string form (CFG, UNT,
//     LAY, RTI, IO and OBS series).
//   - Message: short human oriented text.
//   - Primary: the file position the finding refers to.
//   - Notes: optional secondary positions with extra context.
//
// Producers emit through a Reporter; BagReporter collects into a Bag, which
// supports sorting and deduplication. Rendering lives in internal/diagfmt.
package diag
