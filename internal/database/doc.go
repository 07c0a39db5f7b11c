// Package database stores contrast scan history in SQLite.
//
// The HistoryDB keeps every saved ScanReport as JSON together with its
// summary counts, so that the compare command can show which findings
// appeared or disappeared between two scans of the same URL.
//
// The driver is modernc.org/sqlite, a CGO-free implementation, so the
// database is a single file under the XDG data directory.
package database
