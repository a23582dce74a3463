// Package transcripts turns match outcomes into lifecycle decisions and
// performs the remote writes. It owns the bounded-retry policy around gateway
// calls (immediate retries, final error surfaced), the outcome decision
// table, and the append/prepend/overwrite merge policies applied when a local
// transcript collides with an existing remote entry.
package transcripts
