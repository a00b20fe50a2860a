package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

type ConsoleConfig struct {
	APIBaseURL string
	SessionID  uuid.UUID
	UserID     uuid.UUID
	UserName   string
	Timeout    time.Duration
}

func main() {
	sessionID, err := uuid.Parse(os.Getenv("SESSION_ID"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "SESSION_ID must be set to a valid session UUID\n")
		os.Exit(1)
	}

	userID := uuid.New()
	if raw := os.Getenv("USER_ID"); raw != "" {
		userID, err = uuid.Parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "USER_ID is not a valid UUID: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		SessionID:  sessionID,
		UserID:     userID,
		UserName:   os.Getenv("USER_NAME"),
		Timeout:    90 * time.Second,
	}

	api := newAPIClient(cfg.APIBaseURL, cfg.UserID, &http.Client{Timeout: cfg.Timeout})

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	// A join code puts the player on a team before fetching session info.
	if code := os.Getenv("TEAM_CODE"); code != "" {
		team, err := api.joinTeam(cfg.SessionID, code, cfg.UserName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to join team: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Joined team %s\n", team.Code)
	}

	info, err := api.sessionInfo(cfg.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load session info: %v\n", err)
		os.Exit(1)
	}
	if len(info.Scenarios) == 0 {
		fmt.Fprintf(os.Stderr, "Session has no scenarios\n")
		os.Exit(1)
	}

	fmt.Printf("Session: %s (%s)  Team: %s\n\n", info.Name, info.Status, info.TeamCode)
	fmt.Println("Scenarios:")
	for i, sc := range info.Scenarios {
		state := fmt.Sprintf("turn %d/%d", sc.CurrentTurn, info.MaxTurns)
		if sc.Closed {
			state = "closed"
		}
		fmt.Printf("  %d - %s, %s (%s)\n", i+1, sc.Title, sc.NPCName, state)
	}
	fmt.Print("\nSelect a scenario by number: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(info.Scenarios) {
		fmt.Fprintf(os.Stderr, "Invalid selection\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api, info, info.Scenarios[choice-1]),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
