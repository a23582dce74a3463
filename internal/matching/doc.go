// Package matching resolves transcript file stems to candidate records in the
// remote store. An exact interview-code lookup short-circuits; otherwise a
// participant triple (type, 4-digit code, optional 6+4-digit timestamp) is
// extracted from the stem and drives an OR-combined substring query whose
// results are deduplicated by record id.
package matching
