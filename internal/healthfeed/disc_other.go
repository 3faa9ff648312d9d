//go:build !linux && !darwin && !freebsd

package healthfeed

import "errors"

func discUsage(string) (int64, int64, error) {
	return 0, 0, errors.New("disc usage is not supported on this platform")
}
