// Package ledger persists terminal batch outcomes to a SQLite database so
// past sessions can be reconciled after the fact. Each record captures the
// batch, file, final state, and matched record identity at the moment a
// transcript left the active workflow.
package ledger
