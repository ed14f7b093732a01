package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/toeicbot/internal/adaptive"
	"github.com/example/toeicbot/internal/bot"
	"github.com/example/toeicbot/internal/config"
	"github.com/example/toeicbot/internal/database"
	"github.com/example/toeicbot/internal/delivery"
	"github.com/example/toeicbot/internal/excel"
	"github.com/example/toeicbot/internal/generator"
	"github.com/example/toeicbot/internal/planner"
	"github.com/example/toeicbot/internal/scheduler"
	"github.com/example/toeicbot/internal/session"
	"github.com/example/toeicbot/internal/tts"
)

func main() {
	importFile := flag.String("import", "", "Import a question bank from an Excel file and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	learners := database.NewLearnerRepository(db)
	questions := database.NewQuestionRepository(db)
	responses := database.NewResponseRepository(db)
	progress := database.NewProgressRepository(db)

	if *importFile != "" {
		runImport(questions, *importFile)
		return
	}

	// The bank is always available as a fallback; the AI generator is the
	// primary source when a key is configured.
	var gen generator.Generator = generator.NewBank(questions)
	if cfg.OpenAIKey != "" {
		gen = &generator.Fallback{Primary: generator.NewOpenAI(cfg.OpenAIKey), Secondary: gen}
	} else {
		log.Println("OPENAI_API_KEY not set, serving questions from the bank only")
	}

	core := delivery.NewService(delivery.Deps{
		Planner:   planner.New(cfg.DueWindowMinutes),
		Engine:    adaptive.New(),
		Tracker:   session.NewTracker(cfg.SessionTimeout),
		Generator: gen,
		TTS:       tts.NewGoogle(cfg.AudioDir),
		Learners:  learners,
		Questions: questions,
		Progress:  progress,
		Responses: responses,
	})

	tgBot, err := bot.New(cfg, core, learners, progress, responses)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	core.SetTransport(tgBot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(core)
	sched.Start(ctx)
	defer sched.Stop()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		tgBot.Stop()
		cancel()
	}()

	log.Println("Bot is starting...")
	if err := tgBot.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete")
}

func runImport(questions *database.QuestionRepository, path string) {
	result, err := excel.ImportQuestions(context.Background(), questions, excel.DefaultImportConfig(path))
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import finished: %d processed, %d created, %d skipped",
		result.TotalProcessed, result.Created, result.Skipped)
	for _, e := range result.Errors {
		log.Printf("  %s", e)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}
