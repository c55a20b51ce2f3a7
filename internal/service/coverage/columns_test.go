package coverage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
)

func TestNormalizeColumns(t *testing.T) {
	headers := []string{"\ufeff Region_Name ", "PRODUCT_NAME", "Year_Of_Manufacture", " quantity", "Required Quantity"}

	normalized, err := NormalizeColumns(headers)
	require.NoError(t, err)
	assert.Equal(t, []string{ColumnRegion, ColumnProduct, ColumnYear, ColumnQuantity, ColumnRequired}, normalized)
}

func TestNormalizeColumnsAliases(t *testing.T) {
	normalized, err := NormalizeColumns([]string{"Region", "Product", "Year", "Qty", "Need"})
	require.NoError(t, err)
	assert.Equal(t, []string{ColumnRegion, ColumnProduct, ColumnYear, ColumnQuantity, ColumnRequired}, normalized)
}

func TestNormalizeColumnsMissing(t *testing.T) {
	_, err := NormalizeColumns([]string{"region_name", "notes", "quantity"})
	require.Error(t, err)

	var schemaErr *models.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{ColumnProduct, ColumnYear}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "product_name, year_of_manufacture")
}

func TestColumnIndexFirstOccurrenceWins(t *testing.T) {
	index := ColumnIndex([]string{"quantity", "region_name", "quantity"})
	assert.Equal(t, 0, index[ColumnQuantity])
	assert.Equal(t, 1, index[ColumnRegion])
}
