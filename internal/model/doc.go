// Package model defines shared domain types for the sync pipeline.
//
// Conventions:
//   - Dates: time.Time at UTC midnight (DateOnly formatting)
//   - Intraday timestamps: time.Time in UTC at second precision
//   - Security identifiers: exchange-suffixed codes (e.g. "600000.SH")
package model
