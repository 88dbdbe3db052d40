package types

import "time"

// DomainCount is how many registered users share an email domain.
type DomainCount struct {
	Domain string
	Count  int64
}

// DirectoryStats summarizes the registered users.
type DirectoryStats struct {
	TotalUsers     int64
	UsersWithPhone int64
	FirstSignup    time.Time
	LastSignup     time.Time
	Domains        []DomainCount
}
