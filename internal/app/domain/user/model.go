// Package user models platform members.
package user

import "time"

// User is a platform member. SponsorID links the direct referrer; Rank is
// recomputed from active investment by the daily rank job.
type User struct {
	ID        string
	Username  string
	SponsorID string
	Rank      string
	Active    bool
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
