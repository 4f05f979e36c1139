// Package observability provides formatted text output of catalog trees for the CLI.
package observability

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/entity-catalog/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of sub-domains listed per domain
	maxItemsToShow = 5
	// maxTreeLines bounds the entity tree listing
	maxTreeLines = 200
)

// Printer handles formatted output of catalog trees
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// PrintDomainTree outputs each domain with its sub-domains.
func (p *Printer) PrintDomainTree(nodes []types.DomainNode) {
	var sb strings.Builder

	if len(nodes) == 0 {
		sb.WriteString("(no domains)")
		p.printBox("DOMAIN TREE", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("Domains: %d\n\n", len(nodes)))
	for i, node := range nodes {
		sb.WriteString(fmt.Sprintf("%s (%d)\n", node.Title, len(node.Children)))

		count := min(len(node.Children), maxItemsToShow)
		for j := 0; j < count; j++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", node.Children[j].Title))
		}
		if len(node.Children) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(node.Children)-maxItemsToShow))
		}
		if i < len(nodes)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DOMAIN TREE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEntityTree outputs the entity forest of one domain and sub-domain,
// one indented line per node. Leaves show their entity id.
func (p *Printer) PrintEntityTree(domain, subDomain string, nodes []*types.TreeNode) {
	title := fmt.Sprintf("ENTITY TREE: %s / %s", domain, subDomain)

	var lines []string
	var walk func(n *types.TreeNode, depth int)
	walk = func(n *types.TreeNode, depth int) {
		line := strings.Repeat("  ", depth) + "• " + n.Title
		if n.EntityID != nil {
			line += fmt.Sprintf(" #%d", *n.EntityID)
		}
		lines = append(lines, line)
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	for _, n := range nodes {
		walk(n, 0)
	}

	if len(lines) == 0 {
		p.printBox(title, "(no entities)")
		return
	}

	total := len(lines)
	if total > maxTreeLines {
		lines = append(lines[:maxTreeLines], fmt.Sprintf("... and %d more", total-maxTreeLines))
	}
	p.printBox(title, fmt.Sprintf("Nodes: %d\n\n", total)+strings.Join(lines, "\n"))
}

// PrintCounts outputs the entity total and the placements per domain, sorted by domain.
func (p *Printer) PrintCounts(total int64, byDomain map[string]int64) {
	domains := slices.Sorted(maps.Keys(byDomain))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total entities: %d\n", total))
	if len(domains) > 0 {
		sb.WriteString("\n")
	}
	for _, d := range domains {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", d, byDomain[d]))
	}
	p.printBox("ENTITY COUNTS", strings.TrimSuffix(sb.String(), "\n"))
}
