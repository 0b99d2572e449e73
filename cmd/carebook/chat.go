package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuemby/carebook/pkg/assistant"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [MESSAGE...]",
	Short: "Ask the assistant to find a doctor",
	Long: `Ask the assistant to find a doctor. With a message the answer is
printed and the command exits; without one, lines are read from stdin
until EOF.

Example:
  carebook chat I need a cardiologist`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		conv := assistant.NewConversation(a.client)

		if len(args) > 0 {
			return say(ctx, a, conv, strings.Join(args, " "))
		}

		fmt.Fprintf(a.out, "bot> %s\n", assistant.Greeting)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(a.out, "you> ")
			if !scanner.Scan() {
				fmt.Fprintln(a.out)
				return scanner.Err()
			}
			if err := say(ctx, a, conv, scanner.Text()); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
		}
	}),
}

func say(ctx context.Context, a *app, conv *assistant.Conversation, text string) error {
	reply, err := conv.Send(ctx, text)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "bot> %s\n", reply.Text)
	printDoctors(a, reply.Doctors)
	return nil
}

func printDoctors(a *app, doctors []types.DoctorSuggestion) {
	for _, d := range doctors {
		fmt.Fprintf(a.out, "     %s, %s (book with: carebook book --provider %d)\n", d.Name, d.Specialization, d.ID)
	}
}
