// backend/handlers/data_handler_test.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openharvest/portal/backend/services"
)

func TestDataErrorStatus(t *testing.T) {
	notCataloged := fmt.Errorf("%w: abc", services.ErrNotCataloged)
	assert.Equal(t, http.StatusNotFound, dataErrorStatus(notCataloged),
		"unknown identifiers are the only not-found case")

	storeErr := errors.New("database connection is not initialized")
	assert.Equal(t, http.StatusInternalServerError, dataErrorStatus(storeErr),
		"store failures are server faults, not missing datasets")
}
