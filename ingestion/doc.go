// Package ingestion orchestrates a run over a set of chunk files.
//
// ProcessAll and ProcessFiles fan a task out over files on a bounded worker pool
// and join every task error. Pipeline builds on them: for each file it enriches
// the records, rejects a file that yields no documents, uploads the rest and
// records a checkpoint and the record failures in the run ledger.
//
// A run never stops at the first failing file. Its error joins the error of every
// file that failed, and the returned RunReport always carries the counts.
package ingestion
