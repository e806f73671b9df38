// Package catalog persists a history of completed and failed runs in a local
// SQLite database. Write-once media gives no second chances; the catalog
// records what was burned, where, and with which digests, so a disc can be
// audited against its intended contents years later.
package catalog
