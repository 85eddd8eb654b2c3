/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
)

// isRetryableModelError reports whether an error is a transient model API
// error worth retrying: rate limits, overload, and gateway timeouts.
func isRetryableModelError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}
