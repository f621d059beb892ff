// Package index implements the transactional search index.
//
// Changes reach the index as transactions. Each transaction is written to a
// log file, then buffered in a ReducibleKeeper: a small in-memory index with a
// committed document buffer, a pending buffer and the transaction log it was
// built from. Keepers form a chain in front of a durable Directory. When the
// chain grows past the merge threshold the keepers are merged into one; when
// the buffered documents exceed the flush threshold the chain is written to
// the durable directory and its log files are removed. Log files left behind
// by a crash are replayed when the Manager opens.
package index
