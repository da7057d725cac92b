package cli

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"trivia-service/internal/client"
	"trivia-service/internal/config"
	"trivia-service/internal/infra/bolt"
	"trivia-service/internal/shuffle"
	"github.com/spf13/cobra"
)

// NewPlayCmd builds the terminal play client.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		serverURL  string
		scoresPath string
		category   string
		full       bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a trivia session against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if serverURL == "" {
				serverURL = cfg.Client.ServerURL
			}
			if serverURL == "" {
				serverURL = "http://localhost:5000"
			}
			if scoresPath == "" {
				scoresPath = cfg.Client.ScoresPath
			}
			if scoresPath == "" {
				scoresPath = "highscores.db"
			}
			return runPlay(cmd.Context(), serverURL, scoresPath, category, full || cfg.Client.Full)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of the trivia server")
	cmd.Flags().StringVar(&scoresPath, "scores", "", "path to the high-score database")
	cmd.Flags().StringVar(&category, "category", "", "category slug to play (skips selection)")
	cmd.Flags().BoolVar(&full, "full", false, "request the full question batch up front")
	return cmd
}

func runPlay(ctx context.Context, serverURL, scoresPath, category string, full bool) error {
	scores, err := bolt.Open(scoresPath)
	if err != nil {
		return err
	}
	defer scores.Close()

	api := client.NewHTTPClient(serverURL)
	in := bufio.NewScanner(os.Stdin)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		slug := category
		if slug == "" {
			slug, err = chooseCategory(ctx, api, scores, in)
			if err != nil {
				return err
			}
			if slug == "" {
				return nil
			}
		}

		machine := client.NewMachine(api, scores)
		machine.PreferFull(full)
		again, err := playSession(ctx, machine, in, rnd, slug)
		if err != nil || !again {
			return err
		}
		category = "" // back to selection
	}
}

func chooseCategory(ctx context.Context, api client.GameAPI, scores client.ScoreStore, in *bufio.Scanner) (string, error) {
	summaries, err := api.Categories(ctx)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		fmt.Println("No categories available.")
		return "", nil
	}

	fmt.Println("Pick a category:")
	for i, c := range summaries {
		best, _ := scores.HighScore(c.Slug)
		fmt.Printf("  %d) %s (%d questions, high score %d)\n", i+1, c.Title, c.Count, best)
	}
	fmt.Print("> ")
	for in.Scan() {
		if n, err := strconv.Atoi(strings.TrimSpace(in.Text())); err == nil && n >= 1 && n <= len(summaries) {
			return summaries[n-1].Slug, nil
		}
		fmt.Print("Enter a number from the list: ")
	}
	return "", in.Err()
}

// playSession runs one play-through and reports whether the player wants
// another round.
func playSession(ctx context.Context, machine *client.Machine, in *bufio.Scanner, rnd *rand.Rand, slug string) (bool, error) {
	snapshots, cancel := machine.Subscribe()
	defer cancel()

	machine.Start(ctx, slug)

	lastQuestion := 0
	for snap := range snapshots {
		switch snap.State {
		case client.StatePlaying:
			if !snap.HasQuestion || snap.Question.ID == lastQuestion {
				continue
			}
			lastQuestion = snap.Question.ID
			fmt.Printf("\nScore: %d | High Score: %d\n", snap.Score, snap.HighScore)
			fmt.Println(snap.Question.Text)
			options := shuffle.Slice(rnd, snap.Question.Options)
			for i, opt := range options {
				fmt.Printf("  %d) %s\n", i+1, opt)
			}
			choice := readChoice(in, len(options))
			if choice == 0 {
				machine.GoHome()
				return false, in.Err()
			}
			if err := machine.Submit(ctx, options[choice-1]); err != nil {
				// A stale prompt raced a transition; the next
				// snapshot re-renders whatever is current.
				lastQuestion = 0
			}
		case client.StateFeedback:
			if snap.Feedback != "" {
				fmt.Println(snap.Feedback)
			}
		case client.StateWon:
			fmt.Printf("\nYou won! Final score: %d (high score %d)\n", snap.Score, snap.HighScore)
			return askReplay(in), nil
		case client.StateLost:
			if snap.Feedback != "" {
				fmt.Println(snap.Feedback)
			}
			fmt.Printf("\nGame over. Your score: %d (high score %d)\n", snap.Score, snap.HighScore)
			return askReplay(in), nil
		}
	}
	return false, nil
}

func readChoice(in *bufio.Scanner, max int) int {
	fmt.Print("> ")
	for in.Scan() {
		if n, err := strconv.Atoi(strings.TrimSpace(in.Text())); err == nil && n >= 1 && n <= max {
			return n
		}
		fmt.Printf("Enter 1-%d: ", max)
	}
	return 0
}

func askReplay(in *bufio.Scanner) bool {
	fmt.Print("Play again? [y/N] ")
	if !in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(in.Text()))
	return answer == "y" || answer == "yes"
}
