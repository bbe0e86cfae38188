package commands

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"askmynotes/internal/summarizer"
	"askmynotes/internal/tui"
)

// ChatAction ingests the given files and opens the interactive chat.
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.String("config"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	subject := cmd.String("subject")
	text, err := ingestFiles(ctx, appCtx, subject, cmd.Args().Slice())
	if err != nil {
		return err
	}

	sum := summarizer.NewFrequencySummarizer()
	header := sum.Summarize(text, 2)
	if kw := sum.Keywords(text, 5); len(kw) > 0 {
		header = fmt.Sprintf("Topics: %s\n%s", strings.Join(kw, ", "), header)
	}

	m := tui.New(ctx, appCtx.Service, localTenant(subject), subject, header)
	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}
