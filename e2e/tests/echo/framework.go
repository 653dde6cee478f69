package echo

import (
	"github.com/onsi/ginkgo/v2"
)

// EchoDescribe annotates the test with the label.
func EchoDescribe(text string, body func()) bool {
	return ginkgo.Describe("[echo] "+text, body)
}
