package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"bnbbrain-backend/internal/chatclient"
	"bnbbrain-backend/internal/richtext"
)

var (
	askInteractive bool
	askHTML        bool
	askStrict      bool
	askInstruction string
)

var (
	youStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	brainStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// askCmd submits prompts through the relay
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask the relay for a trading insight",
	Long: `Submit a prompt (for example a pair like BNB/USDT) to /api/chat and print
the reply.

With --interactive the command reads prompts line by line until EOF and keeps
the conversation on screen. Blank lines are ignored.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "Read prompts from stdin until EOF")
	askCmd.Flags().BoolVar(&askHTML, "html", false, "Print replies as escaped HTML")
	askCmd.Flags().BoolVar(&askStrict, "strict", false, "Report relay errors instead of the fallback text")
	askCmd.Flags().StringVar(&askInstruction, "instruction", chatclient.DefaultInstruction, "Instruction sent ahead of the prompt")
}

func runAsk(cmd *cobra.Command, args []string) error {
	client := chatclient.New(endpoint,
		chatclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		chatclient.WithInstruction(askInstruction),
	)
	s := &askSession{
		client: client,
		out:    cmd.OutOrStdout(),
		html:   askHTML,
		strict: askStrict,
	}

	if askInteractive {
		return s.loop(cmd.Context(), cmd.InOrStdin())
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return errors.New("a prompt is required (or use --interactive)")
	}
	return s.ask(cmd.Context(), prompt)
}

type askSession struct {
	client *chatclient.Client
	out    io.Writer
	html   bool
	strict bool
	conv   chatclient.Conversation
}

func (s *askSession) ask(ctx context.Context, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.conv.AddUser(prompt)

	var reply string
	if s.strict {
		r, err := s.client.Ask(ctx, prompt)
		if err != nil {
			var relayErr *chatclient.RelayError
			if errors.As(err, &relayErr) {
				fmt.Fprintln(s.out, errStyle.Render(fmt.Sprintf("relay error %d: %s", relayErr.StatusCode, relayErr.Message)))
			} else {
				fmt.Fprintln(s.out, errStyle.Render(err.Error()))
			}
			return err
		}
		reply = r
	} else {
		reply = s.client.Submit(ctx, prompt)
	}

	s.conv.AddAssistant(reply)
	s.print(reply)
	return nil
}

func (s *askSession) print(reply string) {
	if s.html {
		fmt.Fprintln(s.out, richtext.RenderHTML(reply))
		return
	}
	fmt.Fprintln(s.out, brainStyle.Render("brain>")+" "+richtext.RenderANSI(reply))
}

// loop keeps asking until in is exhausted. In strict mode a failed prompt
// is reported and the loop continues.
func (s *askSession) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if !s.html {
			fmt.Fprint(s.out, youStyle.Render("you> "))
		}
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		_ = s.ask(ctx, prompt)
	}
	fmt.Fprintln(s.out)
	return scanner.Err()
}
