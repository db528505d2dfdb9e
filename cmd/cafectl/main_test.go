package main

import (
	"testing"

	"cafehub/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItems(t *testing.T) {
	items, err := parseItems([]string{"3:2", "1:1"})
	require.NoError(t, err)
	assert.Equal(t, []client.PurchaseItem{{GoodsID: 3, Quantity: 2}, {GoodsID: 1, Quantity: 1}}, items)

	for _, bad := range []string{"3", "x:1", "3:0", "3:-1", "0:1"} {
		_, err := parseItems([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"7", "9"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids)

	_, err = parseIDs([]string{"7"}, 2)
	assert.Error(t, err)
}
