package azure

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	notFound := &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}

	assert.True(t, IsNotFoundError(notFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("looking up group: %w", notFound)))
	assert.False(t, IsNotFoundError(&azcore.ResponseError{StatusCode: http.StatusForbidden}))
	assert.False(t, IsNotFoundError(errors.New("not found")))
	assert.False(t, IsNotFoundError(nil))
}

func TestIsConflictError(t *testing.T) {
	conflict := &azcore.ResponseError{StatusCode: http.StatusConflict}

	assert.True(t, IsConflictError(conflict))
	assert.True(t, IsConflictError(fmt.Errorf("creating snapshot: %w", conflict)))
	assert.False(t, IsConflictError(&azcore.ResponseError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsConflictError(nil))
}
