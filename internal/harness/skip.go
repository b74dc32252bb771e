package harness

import (
	"fmt"
	"slices"

	"github.com/onsi/ginkgo/v2"
)

// SkipSerial reports whether a test carrying markers must be skipped in a
// group of numRanks ranks, and why.
func SkipSerial(markers []string, numRanks int) (bool, string) {
	if numRanks > 1 && slices.Contains(markers, MarkerSerial) {
		return true, fmt.Sprintf("serial test skipped with %d ranks", numRanks)
	}
	return false, ""
}

// Serial labels a ginkgo spec as single-rank only.
var Serial = ginkgo.Label(MarkerSerial)

// Validation labels a long running ginkgo spec.
var Validation = ginkgo.Label(MarkerValidation)

// SkipIfSerial skips the current ginkgo spec when it is labelled Serial
// and the group has more than one rank.
func SkipIfSerial(numRanks int) {
	if skip, reason := SkipSerial(ginkgo.CurrentSpecReport().Labels(), numRanks); skip {
		ginkgo.Skip(reason)
	}
}
