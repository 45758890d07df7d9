package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrodas/legalexam/internal/analyzer"
	"github.com/mrodas/legalexam/internal/catalog"
	"github.com/mrodas/legalexam/internal/handler"
	appI18n "github.com/mrodas/legalexam/internal/i18n"
	"github.com/mrodas/legalexam/internal/model"
	"github.com/mrodas/legalexam/internal/scoring"
	"github.com/mrodas/legalexam/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "legalexam",
		Short: "Legal case exam server with AI-assisted argument scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `legalexam --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "legalexam.db", "SQLite database path")
	f.String("cases", "", "Path to a cases JSON file (empty = embedded default catalog)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")
	f.String("llm-key", "", "API key for the argument analyzer")
	f.String("llm-model", "gpt-4o-mini", "Analyzer model name")
	f.Duration("llm-timeout", 30*time.Second, "Per-call analyzer timeout")
	f.StringP("lang", "l", "es", "Message language (es, en)")
	f.Bool("paraphrase", true, "Paraphrase displayed question text")
	f.String("instructor-password", "", "Instructor password (or set LEGALEXAM_INSTRUCTOR_PASSWORD)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all stored exam reports as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "legalexam.db", "SQLite database path")
	f.String("exam-id", "", "Exam identifier for output (required)")
	f.String("subject", "", "Subject name for output (required)")
	f.String("date", "", "Exam date in YYYY-MM-DD format (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LEGALEXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("legalexam")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/legalexam")
	v.AddConfigPath("/etc/legalexam")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	cfg := model.Config{
		Addr:               v.GetString("addr"),
		DBPath:             v.GetString("db"),
		CasesPath:          v.GetString("cases"),
		LLMBaseURL:         v.GetString("llm-url"),
		LLMKey:             v.GetString("llm-key"),
		LLMModel:           v.GetString("llm-model"),
		LLMTimeout:         v.GetDuration("llm-timeout"),
		Lang:               v.GetString("lang"),
		Paraphrase:         v.GetBool("paraphrase"),
		InstructorPassword: v.GetString("instructor-password"),
		SecureCookies:      v.GetBool("secure-cookies"),
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("cleanup expired sessions", "error", err)
	}
	if n, err := db.ReportCount(); err == nil && n > 0 {
		slog.Info("existing reports in database", "count", n)
	}

	var cat *catalog.Catalog
	if cfg.CasesPath != "" {
		cat, err = catalog.LoadFile(cfg.CasesPath)
	} else {
		cat, err = catalog.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	slog.Info("catalog loaded",
		"cases", len(cat.Cases()),
		"questions", cat.QuestionCount(),
		"max_possible", cat.MaxPossible(),
	)

	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	client := analyzer.New(cfg.LLMBaseURL, cfg.LLMKey, cfg.LLMModel, cfg.LLMTimeout)
	if !client.Available() {
		slog.Warn("no analyzer API key configured, argument scoring falls back to the local heuristic")
	}

	agg := scoring.NewAggregator(scoring.NewEvaluator(client), cat)

	h, err := handler.New(db, client, agg, cat, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(cfg.Lang))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"model", cfg.LLMModel,
		"llm_url", cfg.LLMBaseURL,
		"lang", cfg.Lang,
		"paraphrase", cfg.Paraphrase,
		"analyzer_available", client.Available(),
	)
	return http.ListenAndServe(cfg.Addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reports, err := db.ExportAll()
	if err != nil {
		return fmt.Errorf("export reports: %w", err)
	}

	// All reports of one run share a catalog; take the case count from
	// the first.
	numCases := 0
	if len(reports) > 0 {
		numCases = len(reports[0].Report.Cases)
	}

	info := model.ExamInfo{
		ExamID:   v.GetString("exam-id"),
		Subject:  v.GetString("subject"),
		Date:     v.GetString("date"),
		NumCases: numCases,
	}
	// Remember the exam identity alongside the results.
	if err := db.SetExamInfo(info); err != nil {
		slog.Warn("record exam info", "error", err)
	}

	export := model.ExamExport{
		ExamID:   info.ExamID,
		Subject:  info.Subject,
		Date:     info.Date,
		NumCases: numCases,
		Reports:  reports,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
