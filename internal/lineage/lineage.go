// Package lineage builds trees of recipe variations from flat lists and
// answers ancestry questions over them. It is pure: no store access.
package lineage

import (
	"sort"

	"github.com/dmitrijs2005/recipelab/internal/models"
)

// Node is one recipe with its children ordered by creation time.
type Node struct {
	Recipe   *models.Recipe
	Children []*Node
}

// Count returns the number of recipes in the subtree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Find returns the node for id within the subtree, or nil.
func (n *Node) Find(id string) *Node {
	if n == nil {
		return nil
	}
	if n.Recipe.ID == id {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// BuildTree assembles the tree whose root is the recipe with an empty parent.
// If several recipes have no parent the earliest created wins. It returns
// nil if no root is present. Recipes whose parent is missing from
// the list are left out of the tree.
func BuildTree(recipes []*models.Recipe) *Node {
	nodes := make(map[string]*Node, len(recipes))
	for _, r := range recipes {
		nodes[r.ID] = &Node{Recipe: r}
	}

	var root *Node
	for _, r := range recipes {
		n := nodes[r.ID]
		if r.IsRoot() {
			if root == nil || earlier(r, root.Recipe) {
				root = n
			}
			continue
		}
		if p, ok := nodes[r.ParentID]; ok {
			p.Children = append(p.Children, n)
		}
	}
	if root == nil {
		return nil
	}
	sortChildren(root)
	return root
}

// earlier orders recipes by creation time, then id, so equal timestamps
// still give one answer whatever the input order.
func earlier(a, b *models.Recipe) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sortChildren(n *Node) {
	sort.Slice(n.Children, func(i, j int) bool {
		return earlier(n.Children[i].Recipe, n.Children[j].Recipe)
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// AncestorChain walks parent links upward from id and returns the ancestors
// root-first, excluding id itself. The walk stops where a parent is missing,
// so a broken link yields a partial chain. A root or unknown id yields nil.
func AncestorChain(recipes []*models.Recipe, id string) []*models.Recipe {
	byID := make(map[string]*models.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}

	cur, ok := byID[id]
	if !ok {
		return nil
	}
	var chain []*models.Recipe
	seen := map[string]bool{id: true}
	for !cur.IsRoot() {
		parent, ok := byID[cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// DescendantSet returns the ids of id and every recipe below it.
func DescendantSet(recipes []*models.Recipe, id string) map[string]struct{} {
	children := make(map[string][]string)
	for _, r := range recipes {
		if !r.IsRoot() {
			children[r.ParentID] = append(children[r.ParentID], r.ID)
		}
	}

	out := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if _, ok := out[c]; ok {
				continue
			}
			out[c] = struct{}{}
			queue = append(queue, c)
		}
	}
	return out
}

// ChildCounts returns the number of direct children per recipe id.
func ChildCounts(recipes []*models.Recipe) map[string]int {
	out := make(map[string]int)
	for _, r := range recipes {
		if !r.IsRoot() {
			out[r.ParentID]++
		}
	}
	return out
}
