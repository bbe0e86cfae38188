package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"askmynotes/internal/tui"
)

// StudyAction ingests the given files and prints generated study questions.
func StudyAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.String("config"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject := cmd.String("subject")
	if _, err := ingestFiles(ctx, appCtx, subject, cmd.Args().Slice()); err != nil {
		return err
	}

	set, err := appCtx.Service.GenerateStudySet(ctx, localTenant(subject), subject, cmd.String("topic"))
	if err != nil {
		return err
	}
	if len(set.MCQs) == 0 && len(set.ShortAnswers) == 0 {
		fmt.Println("The model did not return a usable study set. Raw output:")
		fmt.Println(set.Raw)
		return nil
	}

	mcq := tablewriter.NewWriter(os.Stdout)
	mcq.Header("#", "Question", "Options", "Answer", "Source")
	for i, q := range set.MCQs {
		if err := mcq.Append(
			strconv.Itoa(i+1),
			q.Question,
			strings.Join(q.Options, "\n"),
			q.Correct,
			tui.FormatCitation(q.Citation),
		); err != nil {
			return err
		}
	}
	if err := mcq.Render(); err != nil {
		return err
	}

	fmt.Println()
	short := tablewriter.NewWriter(os.Stdout)
	short.Header("#", "Question", "Expected answer", "Source")
	for i, q := range set.ShortAnswers {
		if err := short.Append(
			strconv.Itoa(i+1),
			q.Question,
			q.ExpectedAnswer,
			tui.FormatCitation(q.Citation),
		); err != nil {
			return err
		}
	}
	return short.Render()
}
