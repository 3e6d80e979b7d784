// Package logtail reads the tail of the feeder log for the UI log panel.
//
// # Reading
//
// Read returns the last maxLines of a file. It walks backwards from the end
// in 32 KiB chunks and stops as soon as enough line breaks are buffered, so
// a long-running log is never read in full. Lines come back in file order,
// trailing carriage returns are dropped and a missing file reads as empty.
// A non-positive maxLines returns the whole file.
//
// Example usage:
//
//	lines, err := logtail.Read(filepath.Join(cfg.StateDir, logging.FileName), 200)
//	if err != nil {
//		return err
//	}
//	panel.SetContent(strings.Join(logtail.FormatLines(lines), "\n"))
//
// # Formatting
//
// The engine logs slog JSON. Format turns one such line into a compact
// human-readable row:
//
//	{"time":"…","level":"WARN","msg":"change poll failed","failures":2}
//	→ 12:30:05 WARN  change poll failed failures=2
//
// Attributes are sorted by key. Lines that are not JSON (a panic trace, for
// instance) are passed through unchanged.
package logtail
