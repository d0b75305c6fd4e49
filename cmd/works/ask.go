package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/works/internal/agent"
)

func init() {
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question about the stored works",
	Long: `Answer a natural-language question by calling a running works API.

The question is interpreted by an Anthropic model (agent.api_key or
ANTHROPIC_API_KEY) and turned into a listing, lookup, search, or update.

Examples:
  works ask "list all publications"
  works ask "prisma papers in English from 2009" --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// AskResponse is the JSON output of works ask.
type AskResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if cfg.Agent.APIKey == "" {
		exitWithError(ExitConfigError, "agent.api_key is not set (or ANTHROPIC_API_KEY)")
	}
	log := mustNewLogger(cfg)
	defer log.Sync()

	interpreter := agent.NewLLMInterpreter(agent.LLMConfig{
		APIKey:    cfg.Agent.APIKey,
		Model:     cfg.Agent.Model,
		MaxTokens: cfg.Agent.MaxTokens,
	}, log)
	api := agent.NewAPIClient(cfg.Agent.APIURL, cfg.API.Token, &http.Client{Timeout: cfg.Agent.Timeout})

	question := strings.Join(args, " ")
	answer, err := agent.New(interpreter, api, log).Answer(context.Background(), question)
	if err != nil {
		exitWithError(ExitError, "answering: %v", err)
	}

	if humanOutput {
		fmt.Println(answer)
	} else {
		outputJSON(AskResponse{Question: question, Answer: answer})
	}
	return nil
}
