package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"askmynotes/internal/domain"
	"askmynotes/internal/tui"
)

// AskAction ingests the given files and answers one question.
func AskAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.String("config"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject := cmd.String("subject")
	if _, err := ingestFiles(ctx, appCtx, subject, cmd.Args().Slice()); err != nil {
		return err
	}

	ans, err := appCtx.Service.Ask(ctx, localTenant(subject), subject, cmd.String("question"))
	if err != nil {
		return err
	}

	fmt.Println(ans.Answer)
	fmt.Printf("\nConfidence: %s\n", ans.Confidence)
	if len(ans.Citations) == 0 {
		return nil
	}
	fmt.Println()
	return writeCitations(os.Stdout, ans)
}

// writeCitations prints one row per citation with its evidence quote.
func writeCitations(w io.Writer, ans *domain.GroundedAnswer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Citation", "Evidence")
	for i, c := range ans.Citations {
		evidence := ""
		if i < len(ans.Evidence) {
			evidence = truncate(ans.Evidence[i], 80)
		}
		if err := table.Append(tui.FormatCitation(c), evidence); err != nil {
			return err
		}
	}
	return table.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
