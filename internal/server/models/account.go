// Package models holds the server-only records that never cross the wire
// as-is: accounts of the identity provider and their refresh tokens.
package models

import "time"

// Account is a principal of the identity provider. Anonymous accounts have
// no email until one is linked.
type Account struct {
	ID          string
	Email       string
	IsAnonymous bool
	DisplayName string
	CreatedAt   time.Time
}
