package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/okent/rekindle/internal/config"
	"github.com/okent/rekindle/internal/store"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Import a contact/availability snapshot from the external directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

// snapshotFile is the import format: a per-user dump of contact signals,
// availability windows, and pairwise context counters produced by the
// directory and calendar integrations.
type snapshotFile struct {
	UserID   string `json:"user_id"`
	Contacts []struct {
		ID                   string    `json:"id"`
		Name                 string    `json:"name"`
		Frequency            string    `json:"frequency"`
		Mode                 string    `json:"mode"`
		LastContact          time.Time `json:"last_contact"`
		CreatedAt            time.Time `json:"created_at"`
		Groups               []string  `json:"groups"`
		Tags                 []string  `json:"tags"`
		SharedEvents         int       `json:"shared_events"`
		InteractionsPerMonth float64   `json:"interactions_per_month"`
		HasBirthday          bool      `json:"has_birthday"`
		EmailCount           int       `json:"email_count"`
		PhoneCount           int       `json:"phone_count"`
		HasAddress           bool      `json:"has_address"`
		HasCompany           bool      `json:"has_company"`
		HasJobTitle          bool      `json:"has_job_title"`
		HasNotes             bool      `json:"has_notes"`
		SocialCount          int       `json:"social_count"`
		PreferredMinutes     int       `json:"preferred_minutes"`
	} `json:"contacts"`
	Windows []struct {
		Start    time.Time `json:"start"`
		End      time.Time `json:"end"`
		Timezone string    `json:"timezone"`
		InPerson bool      `json:"in_person"`
	} `json:"windows"`
	CoMentions []struct {
		A     string `json:"a"`
		B     string `json:"b"`
		Count int    `json:"count"`
	} `json:"co_mentions"`
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.UserID == "" {
		return fmt.Errorf("snapshot missing user_id")
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	for _, c := range snap.Contacts {
		contact := &store.Contact{
			ID:                   c.ID,
			UserID:               snap.UserID,
			Name:                 c.Name,
			Frequency:            c.Frequency,
			Mode:                 c.Mode,
			Groups:               c.Groups,
			Tags:                 c.Tags,
			SharedEvents:         c.SharedEvents,
			InteractionsPerMonth: c.InteractionsPerMonth,
			HasBirthday:          c.HasBirthday,
			EmailCount:           c.EmailCount,
			PhoneCount:           c.PhoneCount,
			HasAddress:           c.HasAddress,
			HasCompany:           c.HasCompany,
			HasJobTitle:          c.HasJobTitle,
			HasNotes:             c.HasNotes,
			SocialCount:          c.SocialCount,
			PreferredMinutes:     c.PreferredMinutes,
		}
		if !c.CreatedAt.IsZero() {
			contact.CreatedAt = c.CreatedAt.UnixMilli()
		}
		if !c.LastContact.IsZero() {
			ms := c.LastContact.UnixMilli()
			contact.LastContact = &ms
		}
		if err := db.UpsertContact(contact); err != nil {
			return fmt.Errorf("import contact %s: %w", c.ID, err)
		}
	}

	windows := make([]store.AvailabilityWindow, 0, len(snap.Windows))
	for _, w := range snap.Windows {
		windows = append(windows, store.AvailabilityWindow{
			UserID:   snap.UserID,
			StartAt:  w.Start.UnixMilli(),
			EndAt:    w.End.UnixMilli(),
			Timezone: w.Timezone,
			InPerson: w.InPerson,
		})
	}
	if len(windows) > 0 {
		if err := db.ReplaceWindows(snap.UserID, windows); err != nil {
			return fmt.Errorf("import windows: %w", err)
		}
	}

	for _, cm := range snap.CoMentions {
		if err := db.AddCoMention(snap.UserID, cm.A, cm.B, cm.Count); err != nil {
			return fmt.Errorf("import co-mention %s/%s: %w", cm.A, cm.B, err)
		}
	}

	fmt.Fprintf(os.Stderr, "imported %d contacts, %d windows, %d co-mention pairs for %s\n",
		len(snap.Contacts), len(snap.Windows), len(snap.CoMentions), snap.UserID)
	return nil
}
