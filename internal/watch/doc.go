// Package watch observes a transcripts folder and reports newly dropped
// .txt files once their writes have settled.
package watch
