// Package workflow runs the stray report form: open, fill, locate, submit,
// confirm, reset.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mr1hm/go-lostfound/internal/backend"
	"github.com/mr1hm/go-lostfound/internal/geolocation"
	"github.com/mr1hm/go-lostfound/internal/models"
)

type State string

const (
	Idle       State = "idle"
	Filling    State = "filling"
	Submitting State = "submitting"
	Success    State = "success"
)

const (
	DefaultDescription  = "No description"
	DefaultCoordinate   = "0"
	ReportTimeLayout    = "2006-01-02T15:04"
	DefaultSuccessDelay = 1500 * time.Millisecond

	retryMessage = "Failed to submit report. Please try again."
)

var (
	ErrNotFilling = errors.New("report form is not open for editing")
	ErrClosed     = errors.New("report workflow closed")
	ErrNotImage   = errors.New("only image files can be attached")
)

// Previews hands out preview URLs for attached photos.
type Previews interface {
	Create(photo models.Photo) (id, url string)
	Release(id string) bool
}

type Submitter interface {
	SubmitStrayReport(ctx context.Context, s backend.StrayReportSubmission) (*models.RawStrayReport, error)
}

// Snapshot is the externally visible workflow state.
type Snapshot struct {
	State    State                  `json:"state"`
	Draft    models.ReportFormDraft `json:"draft"`
	Error    string                 `json:"error,omitempty"`
	Locating bool                   `json:"locating"`
}

// Fields carries edits to the draft; nil fields are left alone.
type Fields struct {
	Description *string `json:"description" form:"description"`
	Lat         *string `json:"lat" form:"lat"`
	Lng         *string `json:"lng" form:"lng"`
	ReportTime  *string `json:"report_time" form:"report_time"`
}

type Options struct {
	Submitter    Submitter
	Refresh      func(ctx context.Context)
	Previews     Previews
	Acquirer     *geolocation.Acquirer
	Clock        Clock
	SuccessDelay time.Duration
	OnChange     func(Snapshot)
}

// Workflow owns one report draft. OnChange runs under the workflow lock and
// must not call back into the Workflow.
type Workflow struct {
	mu sync.Mutex

	state    State
	draft    models.ReportFormDraft
	errMsg   string
	locating bool
	preview  string // live preview id, "" if none
	edits    uint64 // bumped on every manual coordinate edit
	mark     uint64 // edits when the pending lookup started
	gen      uint64 // bumped whenever the form is reset
	timer    Timer
	closed   bool

	submitter Submitter
	refresh   func(ctx context.Context)
	previews  Previews
	acquirer  *geolocation.Acquirer
	clock     Clock
	delay     time.Duration
	onChange  func(Snapshot)
}

func New(opts Options) *Workflow {
	w := &Workflow{
		state:     Idle,
		submitter: opts.Submitter,
		refresh:   opts.Refresh,
		previews:  opts.Previews,
		acquirer:  opts.Acquirer,
		clock:     opts.Clock,
		delay:     opts.SuccessDelay,
		onChange:  opts.OnChange,
	}
	if w.previews == nil {
		w.previews = NewPreviewStore()
	}
	if w.acquirer == nil {
		w.acquirer = geolocation.NewAcquirer(nil, geolocation.DefaultOptions())
	}
	if w.clock == nil {
		w.clock = SystemClock{}
	}
	if w.delay <= 0 {
		w.delay = DefaultSuccessDelay
	}
	return w
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workflow) snapshot() Snapshot {
	return Snapshot{State: w.state, Draft: w.draft, Error: w.errMsg, Locating: w.locating}
}

func (w *Workflow) publish() {
	if w.onChange != nil {
		w.onChange(w.snapshot())
	}
}

// Open starts a new empty draft. Opening an already open form keeps it.
func (w *Workflow) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.state == Filling || w.state == Submitting {
		return nil
	}
	w.reset(Filling)
	w.publish()
	return nil
}

// Update applies field edits. Edits are accepted while a location lookup is
// pending.
func (w *Workflow) Update(f Fields) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if f.Description != nil {
		w.draft.Description = *f.Description
	}
	if f.Lat != nil {
		w.draft.Lat = *f.Lat
	}
	if f.Lng != nil {
		w.draft.Lng = *f.Lng
	}
	if f.Lat != nil || f.Lng != nil {
		w.edits++
	}
	if f.ReportTime != nil {
		w.draft.ReportTime = *f.ReportTime
	}
	w.publish()
	return nil
}

// AttachPhoto replaces the draft photo, releasing the previous preview.
func (w *Workflow) AttachPhoto(p models.Photo) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	if !p.IsImage() {
		return ErrNotImage
	}
	w.releasePreview()

	id, url := w.previews.Create(p)
	w.preview = id
	w.draft.Photo = &p
	w.draft.PhotoPreviewURL = url
	w.publish()
	return nil
}

func (w *Workflow) RemovePhoto() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.releasePreview()
	w.draft.Photo = nil
	w.draft.PhotoPreviewURL = ""
	w.publish()
	return nil
}

// BeginLocating shows the lookup as pending while the device is still being
// asked. The reading arrives later through UseCurrentLocation.
func (w *Workflow) BeginLocating() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.editable(); err != nil {
		return err
	}
	w.startLocating()
	w.publish()
	return nil
}

func (w *Workflow) startLocating() {
	if !w.locating {
		w.mark = w.edits
	}
	w.locating = true
	w.errMsg = ""
}

// UseCurrentLocation fills lat/lng from locator. A nil locator means the
// client has no geolocation API. On failure the coordinate fields are left
// as they are and the failure message is shown. Coordinates typed after the
// lookup started are kept over the fix.
func (w *Workflow) UseCurrentLocation(ctx context.Context, locator geolocation.Locator) error {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return err
	}
	gen := w.gen
	w.startLocating()
	w.publish()
	w.mu.Unlock()

	pos, err := w.acquirer.AcquireWith(ctx, locator)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.gen != gen {
		return nil
	}
	w.locating = false
	if err != nil {
		w.errMsg = geolocation.Classify(err).Message
		w.publish()
		return err
	}
	if w.state == Filling && w.edits == w.mark {
		w.draft.Lat = models.FormatCoordinate(pos.Lat)
		w.draft.Lng = models.FormatCoordinate(pos.Lng)
	}
	w.publish()
	return nil
}

// Submit sends the draft with defaults filled in. On success the marker list
// is refreshed once, the draft cleared and the form shows Success until the
// confirmation delay elapses. On failure the form returns to Filling with the
// input intact.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.state != Filling {
		w.mu.Unlock()
		return ErrNotFilling
	}
	sub := w.submission()
	gen := w.gen
	w.state = Submitting
	w.errMsg = ""
	w.publish()
	w.mu.Unlock()

	report, err := w.submitter.SubmitStrayReport(ctx, sub)

	w.mu.Lock()
	if err != nil {
		defer w.mu.Unlock()
		slog.Warn("stray report submission failed", "error", err)
		if w.closed || w.gen != gen {
			return err
		}
		w.state = Filling
		w.errMsg = backend.UserMessage(err, retryMessage)
		w.publish()
		return err
	}
	if !w.closed && w.gen == gen {
		w.releasePreview()
		w.draft = models.ReportFormDraft{}
	}
	w.mu.Unlock()

	if report != nil {
		slog.Info("stray report submitted", "id", report.ID)
	}
	if w.refresh != nil {
		w.refresh(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.gen != gen {
		return nil
	}
	w.state = Success
	w.timer = w.clock.AfterFunc(w.delay, func() { w.dismiss(gen) })
	w.publish()
	return nil
}

func (w *Workflow) dismiss(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.gen != gen || w.state != Success {
		return
	}
	w.timer = nil
	w.reset(Idle)
	w.publish()
}

// Cancel discards the draft and closes the form. A submission still in
// flight completes but no longer changes the form.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.state == Idle {
		return nil
	}
	w.reset(Idle)
	w.publish()
	return nil
}

// Close releases everything the workflow holds. Every later call is a no-op.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.reset(Idle)
	w.closed = true
}

func (w *Workflow) editable() error {
	if w.closed {
		return ErrClosed
	}
	if w.state != Filling {
		return ErrNotFilling
	}
	return nil
}

func (w *Workflow) reset(state State) {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.releasePreview()
	w.gen++
	w.state = state
	w.draft = models.ReportFormDraft{}
	w.errMsg = ""
	w.locating = false
}

func (w *Workflow) releasePreview() {
	if w.preview == "" {
		return
	}
	w.previews.Release(w.preview)
	w.preview = ""
}

func (w *Workflow) submission() backend.StrayReportSubmission {
	sub := backend.StrayReportSubmission{
		Description: strings.TrimSpace(w.draft.Description),
		Lat:         strings.TrimSpace(w.draft.Lat),
		Lng:         strings.TrimSpace(w.draft.Lng),
		ReportTime:  strings.TrimSpace(w.draft.ReportTime),
		Photo:       w.draft.Photo,
	}
	if sub.Description == "" {
		sub.Description = DefaultDescription
	}
	if sub.Lat == "" {
		sub.Lat = DefaultCoordinate
	}
	if sub.Lng == "" {
		sub.Lng = DefaultCoordinate
	}
	if sub.ReportTime == "" {
		sub.ReportTime = w.clock.Now().UTC().Truncate(time.Minute).Format(ReportTimeLayout)
	}
	return sub
}
