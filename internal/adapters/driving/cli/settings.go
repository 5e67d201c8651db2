package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

var settingsJSON bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, language model, transcription
server and vector store.

Settings are resolved from built-in defaults, then the config file, then
MEETSIGHT_* environment variables.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE:  runSettingsShow,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective settings to the config file",
	Long: `Write every effective setting to the config file so it can be edited
by hand. Existing values are kept; API keys are only written when set.`,
	RunE: runSettingsInit,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runSettingsEmbedding,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Configure the vector store backend",
	RunE:  runSettingsStore,
}

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsJSON, "json", false, "print settings as JSON")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	rootCmd.AddCommand(settingsCmd)
}

func loadSettings() (*domain.AppSettings, error) {
	svc, err := getSettingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func saveSettings(settings *domain.AppSettings) error {
	svc, err := getSettingsService()
	if err != nil {
		return err
	}
	if err := svc.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	if wantJSON(cmd, settingsJSON) {
		return printJSON(cmd.OutOrStdout(), maskedSettings(*settings))
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  CORS origins: %s\n", strings.Join(settings.Server.CORSOrigins, ", "))
	cmd.Printf("  Max upload: %d MB\n", settings.Server.MaxUploadMB)
	cmd.Printf("  Request timeout: %s\n", settings.Server.RequestTimeout)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Base URL: %s\n", valueOrUnset(settings.Embedding.BaseURL))
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskedOrUnset(settings.Embedding.APIKey))
	}
	cmd.Printf("  Dimensions: %s\n", dimensionsLabel(settings.Embedding.Dimensions))
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	cmd.Printf("  JSON mode: %t\n", settings.LLM.JSONMode)
	cmd.Println()

	cmd.Println("[Transcription]")
	cmd.Printf("  Base URL: %s\n", settings.Transcription.BaseURL)
	cmd.Printf("  Model: %s\n", settings.Transcription.Model)
	if settings.Transcription.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Transcription.APIKey))
	}
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Backend.Description())
	cmd.Printf("  Collection: %s\n", settings.Store.Collection)
	switch settings.Store.Backend {
	case domain.StoreSQLite:
		cmd.Printf("  Path: %s\n", valueOrUnset(settings.Store.Path))
	case domain.StorePGVector:
		cmd.Printf("  DSN: %s\n", maskedOrUnset(settings.Store.DSN))
	case domain.StoreChroma:
		cmd.Printf("  URL: %s\n", settings.Store.URL)
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Chunking: %s (max %d chars, overlap %d)\n",
		settings.Chunking.Policy, settings.Chunking.MaxChars, settings.Chunking.Overlap)

	return nil
}

func runSettingsInit(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := saveSettings(settings); err != nil {
		return err
	}
	cmd.Println("Settings written.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	apiKey := settings.Embedding.APIKey
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if provider != settings.Embedding.Provider {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[model]

	if err := saveSettings(settings); err != nil {
		return err
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	if settings.Store.Backend != domain.StoreMemory {
		cmd.Println("Note: meetings indexed with a different model must be ingested again.")
	}
	return nil
}

func runSettingsStore(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Vector Store")
	backends := domain.AllStoreBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(backends), 1)
	backend := backends[idx-1]

	switch backend {
	case domain.StorePGVector:
		cmd.Print("Enter PostgreSQL DSN: ")
		dsn := readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if dsn == "" && settings.Store.DSN == "" {
			return errors.New("a DSN is required for pgvector")
		}
		if dsn != "" {
			settings.Store.DSN = dsn
		}
	case domain.StoreChroma:
		cmd.Printf("Enter Chroma URL [%s]: ", settings.Store.URL)
		if url := readLine(reader); url != "" {
			settings.Store.URL = url
		}
	}

	settings.Store.Backend = backend
	if err := saveSettings(settings); err != nil {
		return err
	}
	cmd.Printf("Vector store configured: %s\n", backend.Description())
	return nil
}

// maskedSettings returns a copy safe to print.
func maskedSettings(s domain.AppSettings) domain.AppSettings {
	if s.Embedding.APIKey != "" {
		s.Embedding.APIKey = maskAPIKey(s.Embedding.APIKey)
	}
	if s.Transcription.APIKey != "" {
		s.Transcription.APIKey = maskAPIKey(s.Transcription.APIKey)
	}
	if s.Store.DSN != "" {
		s.Store.DSN = maskAPIKey(s.Store.DSN)
	}
	return s
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func maskedOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return maskAPIKey(v)
}

func dimensionsLabel(n int) string {
	if n == 0 {
		return "learned from first response"
	}
	return strconv.Itoa(n)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads a line without echo when in is the terminal stdin,
// and falls back to reader otherwise.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
