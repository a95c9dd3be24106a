// Package writer persists normalized rows in batched transactions.
//
// Statements are generated from the table spec in one of two modes:
//   - upsert: INSERT ... ON CONFLICT (pk) DO UPDATE SET col = EXCLUDED.col
//   - insert-ignore: INSERT ... ON CONFLICT DO NOTHING
//
// Sharded tables are grouped by the security hash and written to all target
// shards concurrently. A batch is one transaction: it lands entirely or not
// at all, so a caller that advances its cursor only after Write returns nil
// never records progress past unwritten data.
package writer
