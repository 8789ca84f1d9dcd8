package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"taskhive/internal/auth"
	"taskhive/internal/chat"
	"taskhive/internal/config"
	"taskhive/internal/db"
	"taskhive/internal/projects"
	"taskhive/internal/tasks"
	"taskhive/internal/users"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long: `Creates demo users (password "demo1234"), a project with phases,
tasks and chat messages. Useful for trying out the API locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		database, err := db.Open(filepath.Join(cfg.DataDir, "taskhive.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		return seed(context.Background(), database)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seed(ctx context.Context, database *db.DB) error {
	userStore := users.NewStore(database)
	projectStore := projects.NewStore(database)
	taskStore := tasks.NewStore(database)
	chatStore := chat.NewStore(database)

	names := []string{"ada", "grace", "linus", "margaret"}
	bar := progressbar.NewOptions(len(names)+9,
		progressbar.OptionSetDescription("Seeding demo data"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	hash, err := auth.HashPassword("demo1234")
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	ids := map[string]string{}
	for _, name := range names {
		u, err := userStore.Create(ctx, users.User{
			Username: name,
			Email:    name + "@example.com",
		}, hash)
		if err != nil {
			return fmt.Errorf("creating user %s: %w", name, err)
		}
		ids[name] = u.ID
		bar.Add(1)
	}

	project, err := projectStore.Create(ctx, projects.Project{
		Title:       "Launch website",
		Description: "Marketing site for the spring launch",
		OwnerID:     ids["ada"],
	})
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	bar.Add(1)

	if err := projectStore.AddSupervisors(ctx, project.ID, []string{ids["grace"]}); err != nil {
		return err
	}
	if err := projectStore.AddMembers(ctx, project.ID, []string{ids["linus"], ids["margaret"]}); err != nil {
		return err
	}
	bar.Add(1)

	now := time.Now()
	design, err := projectStore.CreatePhase(ctx, projects.Phase{
		ProjectID: project.ID,
		Title:     "Design",
		Status:    projects.StatusInProgress,
		Color:     "#4C9AFF",
		BeginDate: now,
		EndDate:   now.AddDate(0, 0, 14),
	})
	if err != nil {
		return fmt.Errorf("creating phase: %w", err)
	}
	bar.Add(1)

	if _, err := projectStore.CreatePhase(ctx, projects.Phase{
		ProjectID: project.ID,
		Title:     "Build",
		Color:     "#36B37E",
		BeginDate: now.AddDate(0, 0, 14),
		EndDate:   now.AddDate(0, 0, 45),
	}); err != nil {
		return fmt.Errorf("creating phase: %w", err)
	}
	bar.Add(1)

	due := now.AddDate(0, 0, 7)
	wireframes, err := taskStore.Create(ctx, tasks.Task{
		PhaseID:  design.ID,
		Title:    "Wireframes",
		Status:   tasks.StatusInProgress,
		Priority: 2,
		LeaderID: ids["linus"],
		DueDate:  &due,
	})
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	bar.Add(1)

	if _, err := taskStore.AddMembers(ctx, wireframes.ID, project.ID, []string{ids["margaret"]}); err != nil {
		return err
	}
	bar.Add(1)

	if _, err := taskStore.CreateComment(ctx, tasks.Comment{
		TaskID:   wireframes.ID,
		AuthorID: ids["margaret"],
		Content:  "First drafts are in the shared folder.",
	}); err != nil {
		return fmt.Errorf("creating comment: %w", err)
	}
	bar.Add(1)

	for _, msg := range []struct{ sender, content string }{
		{"ada", "Welcome aboard, everyone."},
		{"grace", "Design phase kickoff is tomorrow at 10."},
	} {
		if _, err := chatStore.CreateMessage(ctx, chat.Message{
			RoomID:   project.RoomID,
			SenderID: ids[msg.sender],
			Content:  msg.content,
		}); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}
		bar.Add(1)
	}

	bar.Finish()
	fmt.Printf("Seeded project %q with %d users. Log in as ada/demo1234.\n", project.Title, len(names))
	return nil
}
