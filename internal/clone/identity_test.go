package clone

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunSuffixIsNineDigits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		suffix := newRunSuffix()
		assert.GreaterOrEqual(t, suffix, 100000000)
		assert.LessOrEqual(t, suffix, 999999999)
		assert.Len(t, fmt.Sprintf("%d", suffix), 9)
	}
}

func TestResourceBaseNameSanitizes(t *testing.T) {
	assert.Equal(t, "my-vm-1", resourceBaseName("My VM 1"))
	assert.Equal(t, "vm1", resourceBaseName("vm1"))
	assert.Equal(t, "web-frontend", resourceBaseName("web frontend"))
}

func TestDefaultVMName(t *testing.T) {
	assert.Equal(t, "vm1-clone-123456789", defaultVMName("vm1", 123456789))
}
