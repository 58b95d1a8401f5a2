package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/yapay-ai/provider-sentinel/pkg/aiclient"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate text through the governed provider chain",
	Long: `Send a prompt through the cache, quota gate, and provider failover chain.
The prompt can be given as arguments or piped via --prompt.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("prompt", "", "Prompt text (alternative to positional args)")
	generateCmd.Flags().String("system", "", "System prompt")
	generateCmd.Flags().StringP("model", "m", "", "Model override for the serving provider")
	generateCmd.Flags().Int("max-tokens", 0, "Maximum output tokens")
	generateCmd.Flags().Float64("temperature", 0, "Sampling temperature")
	generateCmd.Flags().StringSlice("providers", nil, "Override the failover order")
	generateCmd.Flags().Bool("no-cache", false, "Bypass the cache for this call")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prompt, _ := cmd.Flags().GetString("prompt")
	if prompt == "" {
		prompt = strings.Join(args, " ")
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("no prompt given")
	}

	systemPrompt, _ := cmd.Flags().GetString("system")
	modelName, _ := cmd.Flags().GetString("model")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	providerOverride, _ := cmd.Flags().GetStringSlice("providers")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	mgr := initGenerators(cfg)
	providers := providerOrder(cfg, mgr)
	if len(providerOverride) > 0 {
		providers = providerOverride
	}
	if len(providers) == 0 {
		return fmt.Errorf("no providers configured: set an api key for at least one provider")
	}

	req := aiclient.GenerateRequest{
		Prompt:      prompt,
		System:      systemPrompt,
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	params := map[string]any{
		"prompt":      req.Prompt,
		"system":      req.System,
		"model":       req.Model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	if noCache {
		// A unique nonce keeps the fingerprint from matching any entry.
		params["nonce"] = uuid.NewString()
	}

	result, err := sys.gateway.Perform(cmd.Context(), "generate", params, providers, mgr.Invoke(req))
	if err != nil {
		return err
	}

	fmt.Println(string(result.Value))

	if result.Cached {
		fmt.Fprintln(cmd.ErrOrStderr(), "-- served from cache, $0.0000")
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "-- provider: %s, cost: $%.6f\n", result.Provider, result.CostUSD)
	}
	return nil
}
