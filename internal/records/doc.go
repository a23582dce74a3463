// Package records defines the remote record store capability the matching
// pipeline consumes: exact lookup by interview code, OR-combined substring
// queries, per-record transcript updates, and a credential probe that
// classifies failures into invalid-credentials, connectivity, and unknown.
//
// The HTTP client targets an Airtable-style REST API but everything above it
// depends only on the Service interface.
package records
