package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"redditsaver/pkg/fetcher"
	"redditsaver/pkg/reddit"
)

const maxTitleWidth = 60

// RenderRunSummary renders the totals of a fetch run in a bordered panel
func RenderRunSummary(rs *fetcher.ResultSet) string {
	status := Green("complete")
	if !rs.Complete() {
		status = Yellow("partial")
	}

	lines := []string{
		Magenta("u/" + rs.Account),
		fmt.Sprintf("%s %s", Cyan("run:"), Dim(rs.RunID)),
		fmt.Sprintf("%s %s", Cyan("pages:"), Yellow(fmt.Sprint(len(rs.Pages)))),
		fmt.Sprintf("%s %s", Cyan("items processed:"), Yellow(fmt.Sprint(rs.Processed))),
		fmt.Sprintf("%s %s", Cyan("unique items:"), Yellow(fmt.Sprint(len(rs.UniqueItems())))),
		fmt.Sprintf("%s %s", Cyan("items with media:"), Yellow(fmt.Sprint(rs.MediaCount()))),
		fmt.Sprintf("%s %s", Cyan("listing:"), status),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// RenderItems renders up to limit items as a table. limit <= 0 renders all.
func RenderItems(items []reddit.Thing, limit int) string {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(neonMagenta)).
		Headers("#", "KIND", "SUBREDDIT", "TITLE", "NAME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, item := range items {
		s, err := item.Summary()
		if err != nil {
			t.Row(fmt.Sprint(i+1), item.Kind, "", "(undecodable item)", "")
			continue
		}
		t.Row(fmt.Sprint(i+1), kindLabel(s.Kind), s.Subreddit, truncate(s.Title, maxTitleWidth), s.Name)
	}

	return t.String()
}

// PrintRunSummary prints the run panel
func PrintRunSummary(rs *fetcher.ResultSet) {
	write(false, RenderRunSummary(rs)+"\n")
}

// PrintItems prints the item table
func PrintItems(items []reddit.Thing, limit int) {
	write(false, RenderItems(items, limit)+"\n")
	if limit > 0 && len(items) > limit {
		write(false, Dim(fmt.Sprintf("... and %d more", len(items)-limit))+"\n")
	}
}

// PrintProfile prints the profile attributes of an account
func PrintProfile(a *reddit.AccountData) {
	if a == nil {
		return
	}
	PrintHighlight("u/" + a.Name)
	PrintInfo("id", a.ID)
	PrintInfo("link karma", fmt.Sprint(a.LinkKarma))
	PrintInfo("comment karma", fmt.Sprint(a.CommentKarma))
	PrintInfo("total karma", fmt.Sprint(a.TotalKarma))
	PrintInfo("verified", fmt.Sprint(a.Verified))
}

func kindLabel(kind string) string {
	switch kind {
	case reddit.KindLink:
		return "post"
	case reddit.KindComment:
		return "comment"
	default:
		return kind
	}
}

// truncate shortens s to max runes, marking the cut with an ellipsis
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
