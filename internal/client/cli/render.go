package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/lineage"
	"github.com/dmitrijs2005/recipelab/internal/models"
)

func printRecipe(w io.Writer, r *models.Recipe) {
	fmt.Fprintf(w, "%s %s\n", r.Emoji, r.Title)
	fmt.Fprintf(w, "id %s  depth %d  by %s\n", r.ID, r.Depth, r.CreatedBy.DisplayName)
	if !r.IsRoot() {
		fmt.Fprintf(w, "variation of %s\n", r.ParentID)
	}
	if r.Description != "" {
		fmt.Fprintln(w, r.Description)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintln(w, "\nIngredients:")
		for _, ing := range r.Ingredients {
			fmt.Fprintln(w, "  - "+ingredientText(ing))
		}
	}
	if len(r.Instructions) > 0 {
		fmt.Fprintln(w, "\nInstructions:")
		for _, in := range r.Instructions {
			fmt.Fprintf(w, "  %d. %s\n", in.Step, in.Text)
		}
	}
	fmt.Fprintf(w, "\n%s", r.Difficulty)
	if r.TotalTime > 0 {
		fmt.Fprintf(w, ", %g min", r.TotalTime)
	}
	if r.Servings > 0 {
		fmt.Fprintf(w, ", serves %g", r.Servings)
	}
	fmt.Fprintln(w)
}

func ingredientText(ing models.Ingredient) string {
	var parts []string
	if ing.Amount != nil {
		parts = append(parts, strconv.FormatFloat(*ing.Amount, 'f', -1, 64))
	}
	if ing.Unit != nil && *ing.Unit != "" {
		parts = append(parts, *ing.Unit)
	}
	parts = append(parts, ing.Name)
	if ing.Notes != nil && *ing.Notes != "" {
		parts = append(parts, "("+*ing.Notes+")")
	}
	return strings.Join(parts, " ")
}

// printTree draws n and its descendants, cutting lines at width runes.
func printTree(w io.Writer, n *lineage.Node, width int) {
	fmt.Fprintf(w, "%d recipes\n", n.Count())
	printNode(w, n, "", "", width)
}

func printNode(w io.Writer, n *lineage.Node, prefix, branch string, width int) {
	line := fmt.Sprintf("%s%s%s %s [%s]", prefix, branch, n.Recipe.Emoji, n.Recipe.Title, n.Recipe.ID)
	fmt.Fprintln(w, truncate(line, width))

	childPrefix := prefix
	switch branch {
	case "├─ ":
		childPrefix += "│  "
	case "└─ ":
		childPrefix += "   "
	}
	for i, c := range n.Children {
		b := "├─ "
		if i == len(n.Children)-1 {
			b = "└─ "
		}
		printNode(w, c, childPrefix, b, width)
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func printProfile(w io.Writer, p *models.Profile) {
	badge := models.Initials(p.DisplayName)
	if p.Avatar.Type == models.AvatarEmoji && p.Avatar.Emoji != "" {
		badge = p.Avatar.Emoji
	}
	fmt.Fprintf(w, "[%s] %s (%s)\n", badge, p.DisplayName, p.OwnerID)
	fmt.Fprintf(w, "%d recipes  %d followers  %d following\n", p.RecipeCount, p.FollowerCount, p.FollowingCount)
}
