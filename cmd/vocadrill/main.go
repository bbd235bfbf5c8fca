package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/vocadrill/vocadrill/internal/config"
	"github.com/vocadrill/vocadrill/internal/fsrs"
	"github.com/vocadrill/vocadrill/internal/infra/postgres"
	"github.com/vocadrill/vocadrill/internal/infra/postgres/repository"
	"github.com/vocadrill/vocadrill/internal/logger"
	"github.com/vocadrill/vocadrill/internal/service"
)

// vocadrill is an operator tool over the scheduling engine: it previews and
// builds study sessions, submits reviews, and prints progress stats for a
// given user. The engine itself is consumed as a library by host services.
func main() {
	var (
		userFlag    = flag.String("user", "", "user UUID (required)")
		sessionFlag = flag.Int("session", 0, "build a session of this many cards")
		ratioFlag   = flag.Float64("ratio", 0.7, "review share of the session, in [0,1]")
		cardFlag    = flag.Int64("card", 0, "submit a review for this card ID")
		correctFlag = flag.Bool("correct", false, "the answer was correct")
		hintFlag    = flag.Bool("hint", false, "a hint was used")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		flag.Usage()
		os.Exit(2)
	}

	dsn, err := cfg.DB.DSN()
	if err != nil {
		log.Fatal(err)
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:        int32(cfg.DB.MaxConnections),
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	transactor := postgres.NewTransactor(pool)

	cardRepo := repository.NewCardRepository(pool)
	progressRepo := repository.NewProgressRepository(pool, transactor, cfg.Scheduler.HistoryMaxEntries)
	profileRepo := repository.NewProfileRepository(pool)

	schedulerCfg := fsrs.Config{
		DesiredRetention: cfg.Scheduler.DesiredRetention,
		MaximumInterval:  cfg.Scheduler.MaximumIntervalDays,
		LearningSteps:    cfg.Scheduler.LearningSteps,
		RelearningSteps:  cfg.Scheduler.RelearningSteps,
	}
	if len(cfg.Scheduler.Weights) == len(schedulerCfg.Weights) {
		copy(schedulerCfg.Weights[:], cfg.Scheduler.Weights)
	}

	scheduler, err := fsrs.New(schedulerCfg)
	if err != nil {
		log.Fatal(err)
	}

	clock := service.SystemClock{}

	selector := service.NewCardSelector(cardRepo, progressRepo, profileRepo, profileRepo, clock, service.SelectorPolicy{
		CurrentLevelShare: cfg.Selector.CurrentLevelShare,
	})
	sessions := service.NewSessionService(selector, cardRepo, progressRepo, profileRepo, clock, service.SessionPolicy{
		MaxNewPerSession:    cfg.Session.MaxNewPerSession,
		MaxReviewPerSession: cfg.Session.MaxReviewPerSession,
		MinNewShare:         cfg.Session.MinNewShare,
	}, zlog)
	reviews := service.NewReviewService(cardRepo, progressRepo, scheduler, clock, zlog)
	progress := service.NewProgressService(progressRepo, cardRepo, profileRepo, clock)

	switch {
	case *cardFlag != 0:
		updated, err := reviews.ProcessReview(ctx, userID, *cardFlag, *correctFlag, *hintFlag)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("card %d: state=%s next_review=%s stability=%.2f difficulty=%.2f\n",
			updated.CardID, updated.State, updated.NextReviewAt.Format("2006-01-02 15:04"),
			updated.Stability, updated.Difficulty)

	case *sessionFlag > 0:
		plan, err := sessions.BuildSession(ctx, userID, *sessionFlag, *ratioFlag)
		if err != nil {
			log.Fatal(err)
		}
		for _, card := range plan.Cards {
			pool := "review"
			if card.IsNew {
				pool = "new"
			}
			fmt.Printf("%-6s card %d (%s)\n", pool, card.CardID, card.QuizType)
		}
		if plan.Message != "" {
			fmt.Println(plan.Message)
		}

	default:
		overview, err := progress.Overview(ctx, userID, 10)
		if err != nil {
			log.Fatal(err)
		}
		stats, err := progress.Stats(ctx, userID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("available: %d new, %d due (%d total)\n",
			overview.NewAvailable, overview.ReviewDue, overview.TotalAvailable)
		fmt.Printf("progress: %d cards (%d learning, %d review, %d relearning); accuracy %.1f%%\n",
			stats.TotalCards, stats.LearningCards, stats.ReviewCards, stats.RelearningCards, stats.AverageAccuracy)
		for _, due := range overview.DueCards {
			fmt.Printf("  card %d due %s (%s)\n", due.CardID, due.NextReviewAt.Format("2006-01-02 15:04"), due.State)
		}
	}
}
