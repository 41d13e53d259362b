package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"sortit/internal/config"
	"sortit/internal/db"
	"sortit/internal/grader"
	"sortit/internal/llm"
	"sortit/internal/milestone"
	"sortit/internal/progress"
	"sortit/internal/redisdb"
	"sortit/internal/tutor"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := os.Getenv("SORTIT_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	breaker := llm.NewCircuitBreaker(3, time.Minute)
	manager := llm.NewManager(llm.DefaultConfig(), breaker)
	defer manager.Stop()
	client := llm.NewClient(manager, llm.PriorityCritical, 2*time.Minute)

	g := grader.New(client, cfg.Ollama.GenerateURL(), cfg.Ollama.Model)
	engine := milestone.NewEngine(milestone.DefaultRegistry())
	svc := tutor.NewService(db.DB, rdb, engine, g, client, cfg)

	userID := uint(1)
	if raw := os.Getenv("SORTIT_USER"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid SORTIT_USER: %v\n", err)
			os.Exit(1)
		}
		userID = uint(n)
	}

	repl(svc, userID)
}

func repl(svc *tutor.Service, userID uint) {
	algorithm := tutor.DefaultAlgorithm
	ctx := context.Background()

	fmt.Printf("SortIt tutor. Algorithm: %s (user %d)\n", algorithm, userID)
	fmt.Println("Commands: /algo <name>, /progress, /level, /top, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/algo "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/algo "))
			if !milestone.DefaultRegistry().Has(name) {
				fmt.Printf("Unknown algorithm %q. Known: %s\n", name,
					strings.Join(milestone.DefaultRegistry().Algorithms(), ", "))
				continue
			}
			algorithm = name
			fmt.Printf("Switched to %s\n", algorithm)
		case line == "/progress":
			snap, err := svc.Progress(userID, algorithm)
			if err != nil {
				log.Printf("progress: %v", err)
				continue
			}
			fmt.Printf("%s: %d%% complete (%d XP from milestones)\n", snap.Algorithm, snap.Percent, snap.TotalXP)
			for _, m := range snap.Milestones {
				mark := " "
				if m.Status == progress.StatusDone {
					mark = "x"
				}
				fmt.Printf("  [%s] %s\n", mark, m.Title)
			}
		case line == "/level":
			info, err := svc.UserLevel(userID)
			if err != nil {
				log.Printf("level: %v", err)
				continue
			}
			fmt.Printf("Level %d (%d/%d XP into level)\n", info.Level, info.CurrentLevelXP, info.XPForNextLevel)
		case line == "/top":
			entries, err := svc.Leaderboard(ctx)
			if err != nil {
				log.Printf("leaderboard: %v", err)
				continue
			}
			for _, e := range entries {
				fmt.Printf("%3d. user %d: %d XP (level %d)\n", e.Rank, e.UserID, e.TotalXP, e.Level)
			}
		default:
			res, err := svc.HandleTurn(ctx, tutor.TurnInput{
				UserID:    userID,
				ContextID: "algo:" + algorithm,
				Algorithm: algorithm,
				Message:   line,
			})
			if err != nil {
				log.Printf("turn: %v", err)
				continue
			}
			fmt.Println(res.Reply)
			if res.Progress.MilestoneHit != "" {
				fmt.Printf("*** Milestone: %s (+%d XP)\n", res.Progress.MilestoneHit, res.Progress.XPEarned)
			}
			fmt.Printf("(+%d XP, total %d, level %d, %s %d%%)\n",
				res.XPGain, res.TotalXP, res.Level.Level, res.Progress.Algorithm, res.Progress.Percent)
		}
	}
}
