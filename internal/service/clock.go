package service

import "time"

// now returns the server time used for every persisted timestamp.
// Millisecond precision matches DATETIME(3) so values read back compare equal.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
