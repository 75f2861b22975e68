package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alienxp03/mealjury/internal/calibrate"
	"github.com/alienxp03/mealjury/internal/config"
	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/engine"
	"github.com/alienxp03/mealjury/internal/export"
	"github.com/alienxp03/mealjury/internal/storage"
	"github.com/alienxp03/mealjury/internal/validate"
	"github.com/alienxp03/mealjury/web/handlers"
)

var (
	dbPath    string
	cfgPath   string
	appConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mealjury",
	Short: "Nutrition estimate reconciliation tool",
	Long: `mealjury reconciles calorie estimates from multiple sources.

Feed it independent opinions (vision model, text parser, reference
database, validator) and it compares them, runs a structured debate when
they disagree, synthesizes a consensus, sanity-checks it against food
knowledge, and learns from your corrections over time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		var err error
		if cfgPath != "" {
			appConfig, err = config.LoadFrom(cfgPath)
		} else {
			appConfig, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.mealjury/mealjury.db)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.mealjury/config.yaml)")

	rootCmd.AddCommand(estimateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(correctionsCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

func getStorage() (storage.Storage, error) {
	path := dbPath
	if path == "" {
		path = storage.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(); err != nil {
		return nil, err
	}

	return store, nil
}

// buildEngine wires the pipeline from the loaded config and storage.
func buildEngine(store storage.Storage) (*engine.Engine, error) {
	learner := calibrate.NewLearner(
		calibrate.WithStore(store),
		calibrate.WithGates(appConfig.Calibration.MinCorrections, appConfig.Calibration.MinConfidence),
		calibrate.WithPriors(appConfig.Priors()),
	)
	if err := learner.LoadFromStore(); err != nil {
		return nil, fmt.Errorf("failed to load calibration state: %w", err)
	}

	return engine.New(
		engine.WithThreshold(appConfig.Defaults.VarianceThreshold),
		engine.WithMaxRounds(appConfig.Defaults.MaxDebateRounds),
		engine.WithWeights(appConfig.SourceWeights()),
		engine.WithLearner(learner),
		engine.WithStorage(store),
	), nil
}

// ============================================================================
// ESTIMATE COMMAND
// ============================================================================

var estimateCmd = &cobra.Command{
	Use:   "estimate [food]",
	Short: "Reconcile estimates for a food",
	Long: `Reconcile calorie estimates from multiple sources into a consensus.

Each --from flag adds one source opinion in source:calories[:confidence]
format. Valid sources: vision_model, text_parser, reference_db, validator.

Examples:
  mealjury estimate "caesar salad" -q "1 bowl" \
    --from vision_model:450:0.7 --from reference_db:120:0.9 --from validator:50:0.6
  mealjury estimate "white rice" -q 200g --from reference_db:260 --from text_parser:250`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEstimate,
}

var (
	quantityFlag string
	userFlag     string
	fromFlags    []string
)

func init() {
	estimateCmd.Flags().StringVarP(&quantityFlag, "quantity", "q", "", "Quantity (e.g. \"200g\", \"1 bowl\")")
	estimateCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID for calibration and corrections")
	estimateCmd.Flags().StringArrayVar(&fromFlags, "from", nil, "Source estimate (source:calories[:confidence], repeatable)")
}

// parseEstimateSpec parses "source:calories[:confidence]" format
func parseEstimateSpec(spec string) (core.Estimate, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Estimate{}, fmt.Errorf("invalid estimate spec: %s (expected source:calories[:confidence])", spec)
	}

	source := core.Source(parts[0])
	if !source.Known() {
		return core.Estimate{}, fmt.Errorf("unknown source: %s", parts[0])
	}

	calories, err := strconv.Atoi(parts[1])
	if err != nil || calories <= 0 {
		return core.Estimate{}, fmt.Errorf("invalid calories in spec %s", spec)
	}

	confidence := 0.7
	if len(parts) == 3 {
		confidence, err = strconv.ParseFloat(parts[2], 64)
		if err != nil || confidence <= 0 || confidence > 1 {
			return core.Estimate{}, fmt.Errorf("invalid confidence in spec %s", spec)
		}
	}

	return core.Estimate{Source: source, Calories: calories, Confidence: confidence}, nil
}

func runEstimate(cmd *cobra.Command, args []string) error {
	foodName := strings.Join(args, " ")

	if len(fromFlags) == 0 {
		return fmt.Errorf("at least one --from estimate is required")
	}
	estimates := make([]core.Estimate, 0, len(fromFlags))
	for _, spec := range fromFlags {
		est, err := parseEstimateSpec(spec)
		if err != nil {
			return err
		}
		estimates = append(estimates, est)
	}

	store, err := getStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	eng, err := buildEngine(store)
	if err != nil {
		return err
	}

	record, err := eng.Estimate(engine.Request{
		FoodName:  foodName,
		Quantity:  quantityFlag,
		UserID:    userFlag,
		Estimates: estimates,
	})
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	printRecord(record)
	return nil
}

func printRecord(record *core.EstimateRecord) {
	consensus := record.Consensus

	fmt.Printf("\n🍽  %s", record.FoodName)
	if record.Quantity != "" {
		fmt.Printf(" (%s)", record.Quantity)
	}
	fmt.Printf("\n   ID: %s\n\n", record.ID)

	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("Consensus: %d kcal (%.0f%% confidence, %s)\n",
		consensus.Calories, consensus.Confidence*100, consensus.SourceLabel)
	if consensus.Macros != (core.Macros{}) {
		fmt.Printf("Macros:    %.1fg protein / %.1fg carbs / %.1fg fat\n",
			consensus.Macros.Protein, consensus.Macros.Carbs, consensus.Macros.Fat)
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("\n%s\n", consensus.Reasoning)

	if !consensus.DebateLog.Empty() {
		fmt.Printf("\n📢 Debate (%d rounds)\n", consensus.DebateLog.Rounds)
		for _, entry := range consensus.DebateLog.Entries {
			fmt.Println(strings.Repeat("─", 40))
			fmt.Printf("Round %d - %s (%d kcal)\n", entry.Round, entry.Source, entry.Calories)
			fmt.Printf("  %s\n", entry.Summary)
			for _, r := range entry.Rebuttals {
				fmt.Printf("  • %s\n", r)
			}
		}
	}

	if len(consensus.Warnings) > 0 {
		fmt.Println("\n⚠️  Warnings:")
		for _, warning := range consensus.Warnings {
			fmt.Printf("  • %s\n", warning)
		}
	}

	if consensus.NeedsClarification {
		fmt.Println("\n❓ Clarification needed:")
		for _, q := range consensus.ClarifyingQuestions {
			fmt.Printf("  • %s\n", q)
		}
	}
	fmt.Println()
}

// ============================================================================
// VALIDATE COMMAND
// ============================================================================

var validateCmd = &cobra.Command{
	Use:   "validate [food]",
	Short: "Check a calorie value for plausibility",
	Long: `Check a single calorie value against the built-in food knowledge.

Examples:
  mealjury validate "chicken breast" -q 170g -c 650
  mealjury validate "caesar salad" -q "1 bowl" -c 450`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		foodName := strings.Join(args, " ")
		quantity, _ := cmd.Flags().GetString("quantity")
		calories, _ := cmd.Flags().GetInt("calories")
		if calories <= 0 {
			return fmt.Errorf("--calories is required and must be positive")
		}

		result := validate.Validate(foodName, quantity, calories, core.Macros{})
		reasonable, extra := validate.CheckReasonableness(core.FoodItem{
			Name: foodName, Quantity: quantity, Calories: calories,
		})

		if result.IsValid && reasonable {
			fmt.Printf("✅ %d kcal for %s (%s) looks plausible (%.0f%% confidence)\n",
				calories, foodName, quantity, result.Confidence*100)
		} else {
			fmt.Printf("❌ %d kcal for %s (%s) looks off (%.0f%% confidence)\n",
				calories, foodName, quantity, result.Confidence*100)
			if result.SuggestedCalories > 0 {
				fmt.Printf("   Suggested: %d kcal\n", result.SuggestedCalories)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Printf("   • %s\n", warning)
		}
		for _, warning := range extra {
			fmt.Printf("   • %s\n", warning)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("quantity", "q", "", "Quantity (e.g. \"200g\", \"1 bowl\")")
	validateCmd.Flags().IntP("calories", "c", 0, "Calorie value to check")
}

// ============================================================================
// LIST COMMAND
// ============================================================================

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved estimates",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.ListEstimates(50, 0)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No estimates found. Create one with: mealjury estimate \"food name\" --from ...")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFOOD\tKCAL\tCONFIDENCE\tSOURCE\tCREATED")
		for _, r := range records {
			shortID := r.ID
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			food := r.FoodName
			if len(food) > 30 {
				food = food[:27] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%.0f%%\t%s\t%s\n",
				shortID,
				food,
				r.Consensus.Calories,
				r.Consensus.Confidence*100,
				r.Consensus.SourceLabel,
				r.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		w.Flush()

		return nil
	},
}

// ============================================================================
// SHOW COMMAND
// ============================================================================

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show estimate details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := findRecordByPrefix(store, args[0])
		if err != nil {
			return err
		}

		printRecord(record)

		fmt.Println("Source estimates:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  SOURCE\tKCAL\tCONFIDENCE")
		for _, est := range record.Estimates {
			fmt.Fprintf(w, "  %s\t%d\t%.0f%%\n", est.Source, est.Calories, est.Confidence*100)
		}
		w.Flush()
		fmt.Printf("\nCreated: %s\n", record.CreatedAt.Format(time.RFC3339))
		return nil
	},
}

// ============================================================================
// DELETE COMMAND
// ============================================================================

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := findRecordByPrefix(store, args[0])
		if err != nil {
			return err
		}

		if err := store.DeleteEstimate(record.ID); err != nil {
			return err
		}

		fmt.Printf("Deleted estimate: %s\n", record.ID)
		return nil
	},
}

// ============================================================================
// EXPORT COMMAND
// ============================================================================

var exportCmd = &cobra.Command{
	Use:   "export [id] [format]",
	Short: "Export estimate to file",
	Long: `Export an estimate to markdown, PDF, or JSON.

Examples:
  mealjury export abc123 markdown
  mealjury export abc123 pdf
  mealjury export abc123 json -o estimate.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := findRecordByPrefix(store, args[0])
		if err != nil {
			return err
		}

		format := export.Format(strings.ToLower(args[1]))
		exporter, err := export.GetExporter(format)
		if err != nil {
			return err
		}

		outputPath, _ := cmd.Flags().GetString("output")
		if outputPath == "" {
			outputPath = export.GenerateFilename(record, exporter.FileExtension())
		}

		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer file.Close()

		if err := exporter.Export(record, file); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		fmt.Printf("Exported to: %s\n", outputPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file path")
}

// ============================================================================
// CORRECT COMMAND
// ============================================================================

var correctCmd = &cobra.Command{
	Use:   "correct [id]",
	Short: "Correct a saved estimate",
	Long: `Record a correction against a saved estimate, teaching the
calibration learner.

Examples:
  mealjury correct abc123 -u alice -c 300
  mealjury correct abc123 -u alice -m "way too high, more like 300 calories"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		calories, _ := cmd.Flags().GetInt("calories")
		message, _ := cmd.Flags().GetString("message")
		if calories <= 0 && message == "" {
			return fmt.Errorf("either --calories or --message is required")
		}

		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		record, err := findRecordByPrefix(store, args[0])
		if err != nil {
			return err
		}

		eng, err := buildEngine(store)
		if err != nil {
			return err
		}

		var correction *core.UserCorrection
		if message != "" {
			correction, err = eng.CorrectionFromMessage(user, record, message)
		} else {
			correction, err = eng.SaveCorrection(user, record.FoodName, record.Consensus.Calories, calories)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Recorded correction for %s: %d → %d kcal (factor %.2f)\n",
			record.FoodName, correction.OriginalCalories, correction.CorrectedCalories, correction.CorrectionFactor)
		return nil
	},
}

func init() {
	correctCmd.Flags().StringP("user", "u", "", "User ID")
	correctCmd.Flags().IntP("calories", "c", 0, "Corrected calorie value")
	correctCmd.Flags().StringP("message", "m", "", "Free-text correction (e.g. \"should be 300 calories\")")
}

// ============================================================================
// CORRECTIONS COMMAND
// ============================================================================

var correctionsCmd = &cobra.Command{
	Use:   "corrections [user]",
	Short: "List a user's corrections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		corrections, err := store.ListCorrections(args[0])
		if err != nil {
			return err
		}

		if len(corrections) == 0 {
			fmt.Printf("No corrections recorded for %s.\n", args[0])
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FOOD\tORIGINAL\tCORRECTED\tFACTOR\tWHEN")
		for _, c := range corrections {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%s\n",
				c.FoodName, c.OriginalCalories, c.CorrectedCalories, c.CorrectionFactor,
				c.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

// ============================================================================
// PATTERNS COMMAND
// ============================================================================

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List learned correction patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		eng, err := buildEngine(store)
		if err != nil {
			return err
		}

		patterns := eng.Patterns()
		if len(patterns) == 0 {
			fmt.Println("No patterns learned yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tFACTOR\tCORRECTIONS\tCONFIDENCE")
		for _, p := range patterns {
			fmt.Fprintf(w, "%s\t%.2f\t%d\t%.0f%%\n",
				p.Category, p.AvgCorrectionFactor, p.CorrectionCount, p.Confidence*100)
		}
		w.Flush()
		return nil
	},
}

// ============================================================================
// CONFIG COMMAND
// ============================================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config file: %s\n\n", config.DefaultConfigPath())

		if appConfig != nil {
			fmt.Println("Current settings:")
			fmt.Printf("  Variance threshold: %.2f\n", appConfig.Defaults.VarianceThreshold)
			fmt.Printf("  Max debate rounds:  %d\n", appConfig.Defaults.MaxDebateRounds)
			fmt.Println("\nSource weights:")
			for name, weight := range appConfig.Weights {
				fmt.Printf("  %s: %.1f\n", name, weight)
			}
			fmt.Println("\nCalibration:")
			fmt.Printf("  Min corrections: %d\n", appConfig.Calibration.MinCorrections)
			fmt.Printf("  Min confidence:  %.2f\n", appConfig.Calibration.MinConfidence)
			for _, p := range appConfig.Calibration.Priors {
				fmt.Printf("  Prior %s: factor %.2f (count %d)\n", p.Category, p.Factor, p.Count)
			}
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create example config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		example := config.GenerateExample()
		if err := os.MkdirAll(strings.TrimSuffix(path, "/config.yaml"), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(example), 0644); err != nil {
			return err
		}

		fmt.Printf("Created config at: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// ============================================================================
// SERVE COMMAND
// ============================================================================

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("port") && appConfig != nil && appConfig.Server.Port != 0 {
			servePort = appConfig.Server.Port
		}

		store, err := getStorage()
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		eng, err := buildEngine(store)
		if err != nil {
			return err
		}

		fmt.Printf("\n🌐 Starting mealjury API server on http://localhost:%d\n\n", servePort)
		fmt.Println("Available endpoints:")
		fmt.Printf("  POST http://localhost:%d/api/estimates      - Reconcile estimates\n", servePort)
		fmt.Printf("  GET  http://localhost:%d/api/estimates      - List estimates\n", servePort)
		fmt.Printf("  POST http://localhost:%d/api/corrections    - Record a correction\n", servePort)
		fmt.Printf("  GET  http://localhost:%d/api/patterns       - Learned patterns\n", servePort)
		fmt.Println("\nPress Ctrl+C to stop the server")

		return startAPIServer(eng, servePort)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8186, "Server port")
}

func startAPIServer(eng *engine.Engine, port int) error {
	h := handlers.New(eng)

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: h.Routes(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down...")
		server.Close()
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func findRecordByPrefix(store storage.Storage, prefix string) (*core.EstimateRecord, error) {
	if record, err := store.GetEstimate(prefix); err == nil && record != nil {
		return record, nil
	}
	records, err := store.ListEstimates(100, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	for _, r := range records {
		if strings.HasPrefix(r.ID, prefix) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("estimate not found: %s", prefix)
}
