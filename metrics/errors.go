package metrics

import "errors"

// ErrMetricNotKnown the reporter has no metric registered under that name
var ErrMetricNotKnown = errors.New("the provided metric does not exist")
