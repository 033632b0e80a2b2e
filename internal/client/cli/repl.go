package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

type handler func(ctx context.Context, args []string) error

type command struct {
	name    string
	usage   string
	minArgs int
	run     handler
}

// runREPL reads commands line by line and dispatches them. It exits on EOF
// or "exit"/"quit". Handler errors are printed and the loop goes on.
// Handlers read follow-up answers from the same reader.
func runREPL(ctx context.Context, cmds []command, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	byName := make(map[string]command, len(cmds))
	for _, c := range cmds {
		byName[c.name] = c
	}

	for {
		if isTerminal() {
			fmt.Fprintf(out, "recipelab %s> ", statusFn())
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		case "help":
			printHelp(out, cmds)
			continue
		}

		c, ok := byName[name]
		if !ok {
			fmt.Fprintln(out, "Unknown command:", name)
			continue
		}
		if len(args) < c.minArgs {
			fmt.Fprintln(out, "Usage:", c.usage)
			continue
		}
		if err := c.run(ctx, args); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func printHelp(out io.Writer, cmds []command) {
	usages := make([]string, 0, len(cmds))
	for _, c := range cmds {
		usages = append(usages, c.usage)
	}
	sort.Strings(usages)
	fmt.Fprintln(out, "Available commands:")
	for _, u := range usages {
		fmt.Fprintln(out, "  "+u)
	}
	fmt.Fprintln(out, "  exit")
}

func (a *App) commands() []command {
	return []command{
		{name: "new", usage: "new <prompt...>", minArgs: 1, run: a.newRecipe},
		{name: "vary", usage: "vary <id> <prompt...>", minArgs: 2, run: a.vary},
		{name: "show", usage: "show <id>", minArgs: 1, run: a.show},
		{name: "rename", usage: "rename <id> <title...>", minArgs: 2, run: a.rename},
		{name: "tree", usage: "tree <id>", minArgs: 1, run: a.tree},
		{name: "ancestors", usage: "ancestors <id>", minArgs: 1, run: a.ancestors},
		{name: "cores", usage: "cores", run: a.cores},
		{name: "delete", usage: "delete <id>", minArgs: 1, run: a.deleteTree},
		{name: "publish", usage: "publish <id>", minArgs: 1, run: a.publish},
		{name: "export", usage: "export <file>", minArgs: 1, run: a.export},
		{name: "import", usage: "import <file>", minArgs: 1, run: a.importFile},

		{name: "fav", usage: "fav <id>", minArgs: 1, run: a.toggleFavorite},
		{name: "favs", usage: "favs", run: a.listFavorites},

		{name: "whoami", usage: "whoami", run: a.whoami},
		{name: "anon", usage: "anon", run: a.anon},
		{name: "link", usage: "link <email>", minArgs: 1, run: a.link},
		{name: "verify", usage: "verify", run: a.verify},
		{name: "signout", usage: "signout", run: a.signOut},
		{name: "name", usage: "name <display name...>", minArgs: 1, run: a.renameSelf},
		{name: "migration", usage: "migration", run: a.migration},

		{name: "suggest", usage: "suggest <recipe id> <message...>", minArgs: 2, run: a.suggest},
		{name: "suggestions", usage: "suggestions <recipe id>", minArgs: 1, run: a.suggestions},
		{name: "approve", usage: "approve <suggestion id>", minArgs: 1, run: a.resolve(models.SuggestionApproved)},
		{name: "reject", usage: "reject <suggestion id>", minArgs: 1, run: a.resolve(models.SuggestionRejected)},
		{name: "notifications", usage: "notifications", run: a.notifications},
		{name: "read", usage: "read <notification id|all>", minArgs: 1, run: a.markRead},
		{name: "follow", usage: "follow <owner id>", minArgs: 1, run: a.follow},
		{name: "unfollow", usage: "unfollow <owner id>", minArgs: 1, run: a.unfollow},
		{name: "following", usage: "following", run: a.following},
		{name: "profile", usage: "profile [owner id]", run: a.profile},
		{name: "avatar", usage: "avatar generated | avatar emoji <emoji> [color] | avatar upload <file>", minArgs: 1, run: a.avatar},
	}
}
