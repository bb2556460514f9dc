// Package database provides SQLite-based run history for bizscout.
//
// RunDB stores one row per crawl run and every match the run produced.
// A Recorder streams matches into the database while the crawl is still
// going, so the history survives a crash even though the output artifact
// is only written at the end.
//
// The database lives in the XDG data directory and uses modernc.org/sqlite,
// a CGO-free driver, so the binary cross-compiles without a C toolchain.
package database
