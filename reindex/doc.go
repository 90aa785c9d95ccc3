// Package reindex rebuilds the secondary indexes of stored records.
//
// A Reindexer walks every record of the configured kinds in the object
// store, in batches, and hands each record to the index engine on an ants
// worker pool. Failed records are retried with exponential backoff; records
// that still fail are counted and logged but do not stop the run.
//
// Index updates only add entries, so a run never removes a stale relation.
// Rebuilding the latest-campaigns index follows walk order, not creation
// order.
package reindex
