package utils

import "errors"

// ----------------- sync service ------------------
var (
	ErrNoAccounts = errors.New("seller credentials are not set")
)
