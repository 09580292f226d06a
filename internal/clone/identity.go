package clone

import (
	"fmt"
	"math/rand"

	"github.com/gosimple/slug"
)

// newRunSuffix allocates the random 9-digit suffix that names every resource
// created by one run. Uniqueness against pre-existing resources is
// probabilistic, the same guarantee the destination namespace gives any
// unlocked writer.
func newRunSuffix() int {
	return 100000000 + rand.Intn(900000000)
}

// resourceBaseName normalizes the source VM name into a string every Azure
// resource type accepts, so display names with spaces or punctuation still
// yield legal snapshot, disk and NIC names.
func resourceBaseName(sourceVMName string) string {
	return slug.Make(sourceVMName)
}

// defaultVMName is the generated destination VM name used when the caller
// does not supply one.
func defaultVMName(sourceVMName string, suffix int) string {
	return fmt.Sprintf("%s-clone-%d", sourceVMName, suffix)
}
