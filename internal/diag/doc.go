// Package diag turns the free-form log of the external site builder into
// structured diagnostic records.
//
// # Data model
//
// Record is the central type. It carries the Level (WARN or ERROR), the
// File relative to the content root, optional Line/Column, and the Message
// with pipeline bookkeeping removed. A Record with an empty File is
// unattributable: the line claimed to be a diagnostic but could not be tied
// to a fixture.
//
// # Formats
//
// The builder changed its log layout over time. Format is a closed set of
// layouts, selected once per run from the probed tool version:
//
//   - FormatLegacy:     ERROR 2021/09/23 13:08:34 shortcodes/file.md: boom
//   - FormatPositional: ERROR "content/a.md:17:3": boom
//
// Parser never re-detects the layout per line.
//
// # Filtering
//
// Only ERROR lines, and WARN lines carrying the expected-diagnostic sentinel,
// are kept. The filter runs before any structural parsing; the sentinel is
// stripped from the stored message.
//
// # Persistence
//
// Output groups records per file in emission order. SideChannel is the JSON
// file written once after the build and read by every later per-fixture pass.
package diag
