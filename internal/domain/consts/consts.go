package consts

import "time"

const (
	DBCtxTimeout = 5 * time.Second
	TokenTTL     = 7 * 24 * time.Hour

	MinPasswordLen = 6
	MaxPageLimit   = 100

	DefaultMongoDB = "bookverseDB"
)
