package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

func TestNormalizeTypeNameMapsSeaSpecificTypes(t *testing.T) {
	assert.Equal(t, "tinyint", NormalizeTypeName("BYTE"))
	assert.Equal(t, "smallint", NormalizeTypeName("SHORT"))
	assert.Equal(t, "bigint", NormalizeTypeName("LONG"))
	assert.Equal(t, "string", NormalizeTypeName("STRING"))
}

func TestNormalizeIntervalTypeDisambiguates(t *testing.T) {
	assert.Equal(t, "interval_year_month", NormalizeIntervalType("INTERVAL", "YEAR TO MONTH"))
	assert.Equal(t, "interval_day_time", NormalizeIntervalType("INTERVAL", "DAY TO SECOND"))
}

func TestDispositionForCloudFetch(t *testing.T) {
	assert.Equal(t, "EXTERNAL_LINKS", dispositionFor(backend.ExecuteRequest{UseCloudFetch: true}))
	assert.Equal(t, "INLINE", dispositionFor(backend.ExecuteRequest{UseCloudFetch: false}))
}
