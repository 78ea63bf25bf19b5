package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/huntd/internal/config"
	"github.com/kalambet/huntd/internal/storage"
	"github.com/kalambet/huntd/internal/track"
)

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new recruiting email and fold it into the tracker",
	Long: `Fetch new recruiting email and fold it into the tracker.

Examples:
  huntd sync
  huntd sync --query "newer_than:7d"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{}
		if query != "" {
			body["query"] = query
		}

		resp, err := client.post(cmd.Context(), "/sync", body)
		if err != nil {
			return err
		}

		var sum track.Summary
		if err := decodeJSON(resp, &sum); err != nil {
			return err
		}

		printSuccess("Sync finished")
		printStatus("Seen", "%d", sum.Seen)
		printStatus("New", "%d", sum.New)
		printStatus("Created", "%d", sum.Created)
		printStatus("Updated", "%d", sum.Updated)
		printStatus("Skipped", "%d", sum.Skipped)
		if sum.Errors > 0 {
			printWarning("%d message(s) failed; they will be retried next run", sum.Errors)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("query", "", "mail provider query overriding the configured one")
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		inactive, _ := cmd.Flags().GetBool("inactive")
		limit, _ := cmd.Flags().GetInt("limit")

		path := "/applications?active=true"
		switch {
		case inactive:
			path = "/applications?active=false"
		case all:
			path = fmt.Sprintf("/applications?limit=%d", limit)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var apps []storage.Application
		if err := decodeJSON(resp, &apps); err != nil {
			return err
		}

		if len(apps) == 0 {
			fmt.Println("No applications found. Run `huntd sync` first.")
			return nil
		}

		for _, a := range apps {
			printApplication(a)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("all", false, "include inactive applications")
	listCmd.Flags().Bool("inactive", false, "show only inactive applications")
	listCmd.Flags().Int("limit", 50, "maximum number of results with --all")
}

func printApplication(a storage.Application) {
	status := colorize(statusColor(a.Status), fmt.Sprintf("%-13s", a.Status))
	line := fmt.Sprintf("%s %s", status, colorize(colorBold, a.CompanyName))
	if a.Position != "" {
		line += " — " + a.Position
	}
	line += fmt.Sprintf("  (%s)", a.LastActivity.Format("2006-01-02"))
	if !a.Active {
		line += " [closed]"
	}
	fmt.Println(line)
	fmt.Printf("  id: %s\n", a.ID)
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one application in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/applications/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var a storage.Application
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}

		fmt.Println(colorize(colorBold, a.CompanyName))
		printStatus("Status", "%s", colorize(statusColor(a.Status), a.Status))
		if a.Position != "" {
			printStatus("Position", "%s", a.Position)
		}
		printStatus("Active", "%v", a.Active)
		printStatus("Applied", "%s", a.CreatedAt.Format("2006-01-02"))
		printStatus("Last activity", "%s", a.LastActivity.Format("2006-01-02"))
		if a.SenderEmail != "" {
			printStatus("Contact", "%s <%s>", a.SenderName, a.SenderEmail)
		}
		if a.ReachedAssessment {
			printStatus("Milestone", "reached assessment")
		}
		if a.ReachedInterview {
			printStatus("Milestone", "reached interview")
		}
		if a.Summary != "" {
			printStatus("Summary", "%s", a.Summary)
		}
		if a.Notes != "" {
			printStatus("Notes", "%s", a.Notes)
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the status event history for one application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/applications/"+url.PathEscape(args[0])+"/events")
		if err != nil {
			return err
		}

		var events []storage.Event
		if err := decodeJSON(resp, &events); err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No events recorded.")
			return nil
		}

		for _, e := range events {
			transition := e.NewStatus
			if e.OldStatus != "" && e.OldStatus != e.NewStatus {
				transition = e.OldStatus + " → " + e.NewStatus
			}
			fmt.Printf("%s  %s\n",
				e.CreatedAt.Format(time.DateOnly),
				colorize(statusColor(e.NewStatus), transition))
			if e.EmailSubject != "" {
				fmt.Printf("  subject: %s\n", e.EmailSubject)
			}
			if e.Summary != "" {
				fmt.Printf("  %s\n", e.Summary)
			}
		}
		return nil
	},
}

// --- companies ---

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List known companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/companies")
		if err != nil {
			return err
		}

		var companies []storage.Company
		if err := decodeJSON(resp, &companies); err != nil {
			return err
		}

		if len(companies) == 0 {
			fmt.Println("No companies known yet.")
			return nil
		}

		for _, c := range companies {
			line := colorize(colorBold, c.Name)
			if c.Domain != "" {
				line += "  (" + c.Domain + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			if strings.Contains(err.Error(), "unknown config key") {
				printWarning("valid keys: %s", strings.Join(config.ValidKeys(), ", "))
			}
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
