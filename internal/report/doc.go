// Package report renders scan reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text with color swatches for terminals
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a findings table and a mermaid pie chart
//
// Writers implement the Writer interface, so they can be used
// interchangeably and composed with MultiWriter.
package report
