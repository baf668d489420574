// Package journal persists deployment runs and their resource records in
// an embedded BadgerDB so that a run can be inspected and rolled back from
// a later process.
//
// Keys:
//
//	run/<run-id>              RunInfo (JSON)
//	seq/<run-id>              next record sequence number (uint64, big endian)
//	rec/<run-id>/<seq>        ResourceRecord (JSON), seq zero-padded
//
// Records of a run are returned in append order. A completed instance is
// appended again with Pending cleared; provisioning.StateFromRecords folds
// the two.
package journal
