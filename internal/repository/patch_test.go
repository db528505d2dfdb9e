package repository

import (
	"testing"

	"cafehub/pkg/money"

	"github.com/stretchr/testify/assert"
)

func TestAccountPatch_Columns(t *testing.T) {
	var empty AccountPatch
	assert.True(t, empty.IsEmpty())
	assert.Empty(t, empty.Columns())

	p := AccountPatch{
		Username: Set("alice"),
		Phone:    Clear[string](),
		Gender:   Set(int8(0)),
	}
	assert.False(t, p.IsEmpty())
	assert.Equal(t, map[string]interface{}{
		"username": "alice",
		"phone":    nil,
		"gender":   int8(0),
	}, p.Columns())
}

func TestGoodsPatch_OnlySetFields(t *testing.T) {
	p := GoodsPatch{Price: Set(money.MustParse("4.50"))}
	cols := p.Columns()

	assert.Len(t, cols, 1)
	assert.Contains(t, cols, "price")
	assert.NotContains(t, cols, "stock")
}
