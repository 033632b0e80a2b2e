package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/client/services"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/models"
	"github.com/dmitrijs2005/recipelab/internal/remote"
)

func (a *App) owner() (models.Owner, error) {
	o, err := a.session.Owner()
	if errors.Is(err, common.ErrNoSession) {
		return o, fmt.Errorf("%w: run 'anon' or 'link <email>' first", err)
	}
	return o, err
}

// parseIngredient reads "2 cup flour", "3 eggs" or "salt".
func parseIngredient(line string) models.Ingredient {
	fields := strings.Fields(line)
	if len(fields) >= 2 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			ing := models.Ingredient{Amount: &v}
			rest := fields[1:]
			if len(rest) >= 2 {
				unit := rest[0]
				ing.Unit = &unit
				rest = rest[1:]
			}
			ing.Name = strings.Join(rest, " ")
			return ing
		}
	}
	return models.Ingredient{Name: strings.TrimSpace(line)}
}

// promptGenerator asks the user for the recipe content. When varying, an
// empty answer keeps the parent's value.
func (a *App) promptGenerator() services.Generator {
	return services.GeneratorFunc(func(ctx context.Context, prompt string, parent *models.Content) (*models.Content, error) {
		var c models.Content
		if parent != nil {
			c = *parent
		} else {
			c.Difficulty = models.DifficultyEasy
		}

		ask := func(label, current string) (string, error) {
			if current != "" {
				label = fmt.Sprintf("%s [%s]", label, current)
			}
			v, err := GetSimpleText(a.reader, label, a.out)
			if err != nil || v == "" {
				return current, err
			}
			return v, nil
		}

		var err error
		if c.Title, err = ask("Title", firstNonEmpty(c.Title, prompt)); err != nil {
			return nil, err
		}
		if c.Description, err = ask("Description", c.Description); err != nil {
			return nil, err
		}
		if c.Emoji, err = ask("Emoji", c.Emoji); err != nil {
			return nil, err
		}

		lines, err := GetLines(a.reader, "Ingredients, one per line (e.g. '2 cup flour')", a.out)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			c.Ingredients = c.Ingredients[:0:0]
			for _, l := range lines {
				c.Ingredients = append(c.Ingredients, parseIngredient(l))
			}
		}

		lines, err = GetLines(a.reader, "Instructions, one step per line", a.out)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			c.Instructions = c.Instructions[:0:0]
			for i, l := range lines {
				c.Instructions = append(c.Instructions, models.Instruction{Step: i + 1, Text: l})
			}
		}

		d, err := ask("Difficulty (easy, medium, hard)", string(c.Difficulty))
		if err != nil {
			return nil, err
		}
		c.Difficulty = models.Difficulty(strings.ToLower(d))
		return &c, nil
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a *App) newRecipe(ctx context.Context, args []string) error {
	o, err := a.owner()
	if err != nil {
		return err
	}
	r, err := a.recipes.Generate(ctx, a.promptGenerator(), strings.Join(args, " "), "", o)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s %s\n", r.ID, r.Title)
	return nil
}

func (a *App) vary(ctx context.Context, args []string) error {
	o, err := a.owner()
	if err != nil {
		return err
	}
	r, err := a.recipes.Generate(ctx, a.promptGenerator(), strings.Join(args[1:], " "), args[0], o)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created variation %s %s (depth %d)\n", r.ID, r.Title, r.Depth)
	return nil
}

func (a *App) show(ctx context.Context, args []string) error {
	r, err := a.recipes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	printRecipe(a.out, r)
	return nil
}

func (a *App) rename(ctx context.Context, args []string) error {
	title := strings.Join(args[1:], " ")
	r, err := a.recipes.Update(ctx, args[0], func(r *models.Recipe) { r.Title = title })
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Fprintln(a.out, "No such recipe, nothing changed")
		return nil
	}
	fmt.Fprintf(a.out, "Renamed %s to %s\n", r.ID, r.Title)
	return nil
}

func (a *App) tree(ctx context.Context, args []string) error {
	r, err := a.recipes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	root, err := a.recipes.GetTree(ctx, r.RootID)
	if err != nil {
		return err
	}
	if root == nil {
		fmt.Fprintln(a.out, "Tree has no root locally")
		return nil
	}
	printTree(a.out, root, terminalWidth())
	return nil
}

func (a *App) ancestors(ctx context.Context, args []string) error {
	r, err := a.recipes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	chain, err := a.recipes.GetAncestors(ctx, r)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		fmt.Fprintln(a.out, "No ancestors, this is an original")
		return nil
	}
	for i, x := range chain {
		fmt.Fprintf(a.out, "%d. %s %s\n", i+1, x.ID, x.Title)
	}
	return nil
}

func (a *App) cores(ctx context.Context, _ []string) error {
	list, err := a.recipes.ListCores(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No recipes yet")
		return nil
	}
	for _, c := range list {
		fmt.Fprintf(a.out, "%s  %s %s  (%d variations)\n", c.ID, c.Emoji, c.Title, c.ChildCount)
	}
	return nil
}

func (a *App) deleteTree(ctx context.Context, args []string) error {
	if !Confirm(a.reader, "Delete "+args[0]+" and all its variations?", a.out) {
		return nil
	}
	res, err := a.recipes.DeleteTree(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d recipes, remote %s\n", len(res.Deleted), res.Remote)
	return nil
}

func (a *App) publish(ctx context.Context, args []string) error {
	out, err := a.recipes.Publish(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Publish", outcomeText(out))
	return nil
}

func (a *App) export(ctx context.Context, args []string) error {
	all, err := a.recipes.ExportAll(ctx)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], b, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d recipes to %s\n", len(all), args[0])
	return nil
}

func (a *App) importFile(ctx context.Context, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var list []*models.Recipe
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	n, err := a.recipes.ImportAll(ctx, list)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d recipes\n", n)
	return nil
}

func (a *App) toggleFavorite(ctx context.Context, args []string) error {
	o, err := a.owner()
	if err != nil {
		return err
	}
	on, out, err := a.favorites.Toggle(ctx, o.ID, args[0])
	if err != nil {
		return err
	}
	state := "removed from"
	if on {
		state = "added to"
	}
	fmt.Fprintf(a.out, "%s %s favorites, remote %s\n", args[0], state, outcomeText(out))
	return nil
}

func (a *App) listFavorites(ctx context.Context, _ []string) error {
	o, err := a.owner()
	if err != nil {
		return err
	}
	favs, err := a.favorites.List(ctx, o.ID)
	if err != nil {
		return err
	}
	for _, f := range favs {
		title := "(not stored locally)"
		if r, err := a.recipes.Get(ctx, f.RecipeID); err == nil {
			title = r.Title
		}
		fmt.Fprintf(a.out, "%s  %s\n", f.RecipeID, title)
	}
	return nil
}

func outcomeText(o remote.Outcome) string {
	switch o.Status {
	case remote.Committed:
		return "committed"
	case remote.Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("unconfirmed (%v)", o.Err)
	}
}
