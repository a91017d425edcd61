package hankel

import "errors"

// ErrRenormUnavailable is returned when renormalised cumulative output is
// requested for a pressure profile that depends on r.
var ErrRenormUnavailable = errors.New("hankel: renormalisation is not available for r-dependent pressure")
