package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-lostfound/internal/backend"
	"github.com/mr1hm/go-lostfound/internal/geolocation"
	"github.com/mr1hm/go-lostfound/internal/models"
	"github.com/mr1hm/go-lostfound/internal/workflow"
)

var (
	reportDescription string
	reportLat         string
	reportLng         string
	reportTime        string
	reportPhoto       string
	reportHere        string
)

// reportCmd files a stray sighting through the same form workflow the web
// page uses, so defaults and validation match.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a stray animal sighting",
	Long: `Submit a stray report. Every field is optional:

  description  defaults to "No description"
  lat, lng     default to 0 (no location)
  time         defaults to now, format 2006-01-02T15:04

--here "lat,lng" fills the coordinates the way a device location fix would.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	lostBreed       string
	lostDescription string
	lostTime        string
	lostLat         string
	lostLng         string
	lostAddress     string
	lostContact     string
	lostPhoto       string
)

// announceCmd posts a lost pet announcement
var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Announce a lost pet",
	Args:  cobra.NoArgs,
	RunE:  runAnnounce,
}

var markFoundStatus string

// markFoundCmd resolves a lost announcement
var markFoundCmd = &cobra.Command{
	Use:   "mark-found <id>",
	Short: "Mark a lost announcement as found",
	Long: `Mark a lost announcement as found so it no longer appears on the map.

Use --status pending to reopen it.`,
	Args: cobra.ExactArgs(1),
	RunE: runMarkFound,
}

func init() {
	reportCmd.Flags().StringVar(&reportDescription, "description", "", "What you saw")
	reportCmd.Flags().StringVar(&reportLat, "lat", "", "Latitude")
	reportCmd.Flags().StringVar(&reportLng, "lng", "", "Longitude")
	reportCmd.Flags().StringVar(&reportTime, "time", "", "When it was seen (2006-01-02T15:04)")
	reportCmd.Flags().StringVar(&reportPhoto, "photo", "", "Path to a photo")
	reportCmd.Flags().StringVar(&reportHere, "here", "", `Current location as "lat,lng"`)

	announceCmd.Flags().StringVar(&lostBreed, "breed", "", "Breed or pet name")
	announceCmd.Flags().StringVar(&lostDescription, "description", "", "Description")
	announceCmd.Flags().StringVar(&lostTime, "time", "", "When the pet went missing")
	announceCmd.Flags().StringVar(&lostLat, "lat", "", "Latitude")
	announceCmd.Flags().StringVar(&lostLng, "lng", "", "Longitude")
	announceCmd.Flags().StringVar(&lostAddress, "address", "", "Where the pet went missing")
	announceCmd.Flags().StringVar(&lostContact, "contact", "", "How to reach the owner")
	announceCmd.Flags().StringVar(&lostPhoto, "photo", "", "Path to a photo")

	markFoundCmd.Flags().StringVar(&markFoundStatus, "status", models.LostStatusFound, "New status: found or pending")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	acquirer := geolocation.NewAcquirer(nil, geolocation.Options{
		HighAccuracy: cfg.Geolocation.HighAccuracy,
		Timeout:      cfg.Geolocation.Timeout,
	})
	wf := workflow.New(workflow.Options{
		Submitter: client,
		Acquirer:  acquirer,
	})
	defer wf.Close()

	if err := wf.Open(); err != nil {
		return err
	}

	if reportHere != "" {
		loc, err := parseLatLng(reportHere)
		if err != nil {
			return err
		}
		if err := wf.UseCurrentLocation(ctx, loc); err != nil {
			return fmt.Errorf("using current location: %w", err)
		}
	}

	fields := workflow.Fields{}
	if cmd.Flags().Changed("description") {
		fields.Description = &reportDescription
	}
	if cmd.Flags().Changed("lat") {
		fields.Lat = &reportLat
	}
	if cmd.Flags().Changed("lng") {
		fields.Lng = &reportLng
	}
	if cmd.Flags().Changed("time") {
		fields.ReportTime = &reportTime
	}
	if err := wf.Update(fields); err != nil {
		return err
	}

	if reportPhoto != "" {
		photo, err := readPhoto(reportPhoto)
		if err != nil {
			return err
		}
		if err := wf.AttachPhoto(*photo); err != nil {
			return fmt.Errorf("%s: %w", reportPhoto, err)
		}
	}

	if err := wf.Submit(ctx); err != nil {
		snap := wf.Snapshot()
		if snap.Error != "" {
			return errors.New(snap.Error)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Report submitted successfully!")
	return nil
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	sub := backend.LostDogSubmission{
		Breed:       lostBreed,
		Description: lostDescription,
		LostTime:    lostTime,
		Lat:         lostLat,
		Lng:         lostLng,
		Address:     lostAddress,
		Contact:     lostContact,
	}
	if lostPhoto != "" {
		photo, err := readPhoto(lostPhoto)
		if err != nil {
			return err
		}
		if !photo.IsImage() {
			return fmt.Errorf("%s: %w", lostPhoto, workflow.ErrNotImage)
		}
		sub.Photo = photo
	}

	a, err := client.PostLostDog(cmd.Context(), sub)
	if err != nil {
		return errors.New(backend.UserMessage(err, "Failed to post announcement."))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Announcement %s posted.\n", a.ID)
	return nil
}

func runMarkFound(cmd *cobra.Command, args []string) error {
	status := strings.ToLower(markFoundStatus)
	if status != models.LostStatusFound && status != models.LostStatusPending {
		return fmt.Errorf("invalid --status %q: must be found or pending", markFoundStatus)
	}

	a, err := client.SetLostStatus(cmd.Context(), args[0], status)
	if err != nil {
		return errors.New(backend.UserMessage(err, "Failed to update status."))
	}
	slog.Debug("lost status updated", "id", a.ID, "status", a.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Announcement %s is now %s.\n", a.ID, a.Status)
	return nil
}

func parseLatLng(s string) (geolocation.Fixed, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geolocation.Fixed{}, fmt.Errorf("invalid location %q: want lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geolocation.Fixed{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geolocation.Fixed{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	return geolocation.Fixed{Lat: lat, Lng: lng}, nil
}

func readPhoto(path string) (*models.Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return &models.Photo{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
