package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipelab/internal/lineage"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestParseIngredient(t *testing.T) {
	tests := []struct {
		in         string
		amount     *float64
		unit, name string
	}{
		{in: "2 cup flour", amount: ptr(2.0), unit: "cup", name: "flour"},
		{in: "0.5 tsp sea salt", amount: ptr(0.5), unit: "tsp", name: "sea salt"},
		{in: "3 eggs", amount: ptr(3.0), name: "eggs"},
		{in: "salt", name: "salt"},
		{in: "a pinch of salt", name: "a pinch of salt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseIngredient(tt.in)
			assert.Equal(t, tt.amount, got.Amount)
			if tt.unit == "" {
				assert.Nil(t, got.Unit)
			} else {
				assert.Equal(t, tt.unit, *got.Unit)
			}
			assert.Equal(t, tt.name, got.Name)
		})
	}
}


func ptr[T any](v T) *T { return &v }

func TestPrintTree(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id, parent string, depth, minute int) *models.Recipe {
		return &models.Recipe{
			ID:        id,
			Lineage:   models.Lineage{ParentID: parent, RootID: "a", Depth: depth},
			Content:   models.Content{Title: "T" + id},
			CreatedAt: t0.Add(time.Duration(minute) * time.Minute),
		}
	}
	root := lineage.BuildTree([]*models.Recipe{
		mk("a", "", 0, 0), mk("b", "a", 1, 1), mk("c", "b", 2, 2), mk("d", "a", 1, 3),
	})

	var buf bytes.Buffer
	printTree(&buf, root, 80)
	want := "4 recipes\n" +
		" Ta [a]\n" +
		"├─  Tb [b]\n" +
		"│  └─  Tc [c]\n" +
		"└─  Td [d]\n"
	assert.Equal(t, want, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
}

func TestIngredientText(t *testing.T) {
	assert.Equal(t, "1.5 cup flour (sifted)", ingredientText(models.Ingredient{Amount: ptr(1.5), Unit: ptr("cup"), Name: "flour", Notes: ptr("sifted")}))
	assert.Equal(t, "salt", ingredientText(models.Ingredient{Name: "salt"}))
}
