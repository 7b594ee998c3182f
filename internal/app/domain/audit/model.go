// Package audit defines the append-only admin action trail.
package audit

import "time"

// Entry records one admin decision against one transaction. Entries are
// immutable and never deleted.
type Entry struct {
	ID            string
	AdminID       string
	Action        string // approve, reject, confirm, credit, debit
	TransactionID string
	Detail        string
	CreatedAt     time.Time
}
