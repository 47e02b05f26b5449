package usage

import "errors"

// ErrLimitReached indicates the conditional increment found the account at a
// limit, without full access, or missing.
var ErrLimitReached = errors.New("limit reached")
