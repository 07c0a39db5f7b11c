// Package pipeline runs contrast scans for one or many URLs.
//
// A Pipeline executes Steps in order against a ScanReport: the scan itself,
// then optional steps such as saving the report to the history database.
// A BatchProcessor runs one fresh pipeline per URL with a concurrency limit
// using errgroup, keeping results in input order.
package pipeline
