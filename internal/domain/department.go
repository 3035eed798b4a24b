package domain

import "time"

// Department is a directory reference entity. The workflow engine treats it
// as an opaque identifier plus a display name; there is no positional
// index-to-name mapping anywhere.
type Department struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
