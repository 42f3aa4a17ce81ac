package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/ai"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/report"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	expInput        inputFlags
	expID           string
	expModel        string
	expMaxTokens    int
	expPromptBudget int
	expPrintPrompt  bool
	expOutput       string
)

var explainCmd = &cobra.Command{
	Use:   "explain [file]",
	Short: "Ask an LLM to explain a dataset profile in plain language",
	Long: `Profile a dataset (or load a recorded run with --id) and send its report to an
OpenAI-compatible chat endpoint for a narrative explanation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := explainTarget(args)
		if err != nil {
			return err
		}
		md := report.Markdown(res)

		model := expModel
		if model == "" && cfg != nil {
			model = cfg.Model
		}
		maxTokens := expMaxTokens
		if maxTokens <= 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		ex := &ai.Explainer{
			Client:       newAIClient(),
			Model:        model,
			MaxTokens:    maxTokens,
			PromptBudget: expPromptBudget,
		}
		if cfg != nil {
			ex.Temperature = cfg.Temperature
		}

		if expPrintPrompt {
			msgs, cut := ex.Messages(md)
			for _, m := range msgs {
				fmt.Printf("--- %s ---\n%s\n\n", m.Role, m.Content)
			}
			fmt.Printf("Model: %s | Prompt tokens: ~%d", model, utils.CountTokens(msgs[0].Content)+utils.CountTokens(msgs[1].Content))
			if cut {
				fmt.Print(" | truncated")
			}
			fmt.Println()
			return nil
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		out, err := ex.Explain(ctx, md)
		if err != nil {
			if errors.Is(err, ai.ErrMissingAPIKey) {
				return fmt.Errorf("%w: set DATALENS_API_KEY or run 'datalens config set api_key <key>'", err)
			}
			return err
		}
		logger.Debug("explained", zap.String("model", model), zap.Int("prompt_tokens", out.PromptTokens), zap.String("request_id", out.RequestID))
		if out.Truncated {
			fmt.Fprintln(os.Stderr, "⚠ Warning: report was truncated to fit the prompt budget")
		}
		if expOutput != "" {
			if err := utils.SafeWriteFile(expOutput, []byte(out.Text+"\n")); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %s\n", expOutput)
			return nil
		}
		fmt.Println(out.Text)
		return nil
	},
}

func explainTarget(args []string) (*profile.Result, error) {
	switch {
	case expID != "" && len(args) > 0:
		return nil, errors.New("pass either a file or --id, not both")
	case expID != "":
		rec, err := loadRecord(expID)
		if err != nil {
			return nil, err
		}
		return rec.Result, nil
	case len(args) == 0:
		return nil, errors.New("a file or --id is required")
	}
	lopt, err := expInput.loadOptions()
	if err != nil {
		return nil, err
	}
	popt, err := expInput.profileOptions()
	if err != nil {
		return nil, err
	}
	ds, err := loader.Load(args[0], lopt)
	if err != nil {
		return nil, err
	}
	return profile.Profile(ds, popt)
}

func newAIClient() *ai.Client {
	c := ai.Config{Logger: logger}
	if cfg != nil {
		c.APIKey = cfg.APIKey
		c.BaseURL = cfg.BaseURL
		c.Timeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		c.RetryMax = cfg.RetryMaxAttempts
		c.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		c.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
	}
	return ai.New(c)
}

func init() {
	rootCmd.AddCommand(explainCmd)
	expInput.register(explainCmd)
	explainCmd.Flags().StringVar(&expID, "id", "", "explain a recorded run instead of a file")
	explainCmd.Flags().StringVar(&expModel, "model", "", "model name (default from config)")
	explainCmd.Flags().IntVar(&expMaxTokens, "max-tokens", 0, "max response tokens (0 = config default)")
	explainCmd.Flags().IntVar(&expPromptBudget, "prompt-budget", 6000, "max estimated tokens of report sent to the model")
	explainCmd.Flags().BoolVar(&expPrintPrompt, "print-prompt", false, "print the prompt and exit without calling the model")
	explainCmd.Flags().StringVar(&expOutput, "output", "", "write the explanation to this file")
}
