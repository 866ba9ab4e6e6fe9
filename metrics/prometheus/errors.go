package prometheus

import "errors"

var errBatchFailed = errors.New("batch insert had failures")
