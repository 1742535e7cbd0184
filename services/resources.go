// backend/services/resources.go
package services

import (
	"strings"

	"github.com/openharvest/portal/backend/models"
)

// pickTabularResource selects the resource the on-demand data service can
// fetch: the first one tagged as CSV, or failing that one whose URL ends
// in .csv. A dataset without one simply has no fetchable data.
func pickTabularResource(resources []models.Resource) *models.Resource {
	for i := range resources {
		if strings.EqualFold(resources[i].Format, "csv") {
			return &resources[i]
		}
	}
	for i := range resources {
		if strings.HasSuffix(strings.ToLower(resources[i].URL), ".csv") {
			return &resources[i]
		}
	}
	return nil
}
