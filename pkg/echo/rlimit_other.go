//go:build !unix

package echo

import (
	"github.com/pkg/errors"
)

func OpenFileLimit() (uint64, error) {
	return 0, errors.New("open file limit is not available on this platform")
}
