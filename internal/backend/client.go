// Package backend is the HTTP client for the report backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mr1hm/go-lostfound/internal/models"
)

const maxBodyBytes = 10 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration, rps int) *Client {
	if rps < 1 {
		rps = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) StrayReports(ctx context.Context, days int) ([]models.RawStrayReport, error) {
	var out []models.RawStrayReport
	if err := c.getList(ctx, "stray markers", "/map/stray", days, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LostAnnouncements(ctx context.Context, days int) ([]models.RawLostAnnouncement, error) {
	var out []models.RawLostAnnouncement
	if err := c.getList(ctx, "lost markers", "/map/lost", days, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StrayReportSubmission is the multipart body of POST /stray-report. Fields
// are sent verbatim; defaulting is the caller's job.
type StrayReportSubmission struct {
	Description string
	Lat         string
	Lng         string
	ReportTime  string
	Photo       *models.Photo
}

func (c *Client) SubmitStrayReport(ctx context.Context, s StrayReportSubmission) (*models.RawStrayReport, error) {
	fields := [][2]string{
		{"description", s.Description},
		{"lat", s.Lat},
		{"lng", s.Lng},
		{"report_time", s.ReportTime},
	}
	var out models.RawStrayReport
	if err := c.postMultipart(ctx, "submit stray report", "/stray-report", fields, s.Photo, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type LostDogSubmission struct {
	Breed       string
	Description string
	LostTime    string
	Lat         string
	Lng         string
	Address     string
	Contact     string
	Photo       *models.Photo
}

func (c *Client) PostLostDog(ctx context.Context, s LostDogSubmission) (*models.RawLostAnnouncement, error) {
	fields := [][2]string{
		{"breed", s.Breed},
		{"description", s.Description},
		{"lost_time", s.LostTime},
		{"lat", s.Lat},
		{"lng", s.Lng},
		{"address", s.Address},
		{"contact", s.Contact},
	}
	var out models.RawLostAnnouncement
	if err := c.postMultipart(ctx, "post lost dog", "/lost-dog", fields, s.Photo, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetLostStatus(ctx context.Context, id, status string) (*models.RawLostAnnouncement, error) {
	const op = "set lost status"
	u := fmt.Sprintf("%s/lost-dog/%s/status?status=%s", c.baseURL, url.PathEscape(id), url.QueryEscape(status))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, nil)
	if err != nil {
		return nil, &Failure{Op: op, Err: fmt.Errorf("error creating request: %w", err)}
	}
	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	var out models.RawLostAnnouncement
	if err := decodeObject(body, &out); err != nil {
		return nil, &Failure{Op: op, Err: err}
	}
	return &out, nil
}

func (c *Client) getList(ctx context.Context, op, path string, days int, dst any) error {
	u := c.baseURL + path
	if days > 0 {
		u += "?days=" + strconv.Itoa(days)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Failure{Op: op, Err: fmt.Errorf("error creating request: %w", err)}
	}
	body, err := c.do(op, req)
	if err != nil {
		return err
	}
	if err := decodeList(body, dst); err != nil {
		return &Failure{Op: op, Err: err}
	}
	return nil
}

func (c *Client) postMultipart(ctx context.Context, op, path string, fields [][2]string, photo *models.Photo, dst any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return &Failure{Op: op, Err: fmt.Errorf("error writing field %s: %w", f[0], err)}
		}
	}
	if photo != nil {
		if err := writePhoto(w, photo); err != nil {
			return &Failure{Op: op, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return &Failure{Op: op, Err: fmt.Errorf("error closing multipart body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return &Failure{Op: op, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, err := c.do(op, req)
	if err != nil {
		return err
	}
	if err := decodeObject(body, dst); err != nil {
		return &Failure{Op: op, Err: err}
	}
	return nil
}

func writePhoto(w *multipart.Writer, p *models.Photo) error {
	name := p.Filename
	if name == "" {
		name = "photo.jpg"
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(p.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("error creating photo part: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return fmt.Errorf("error writing photo: %w", err)
	}
	return nil
}

// do sends the request and returns the body of a 2xx response. Every error is
// a *Failure.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, &Failure{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Failure{Op: op, Err: fmt.Errorf("error while doing request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Failure{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("error reading body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{
			Op:     op,
			Status: resp.StatusCode,
			Detail: parseDetail(body),
			Err:    fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status),
		}
	}
	return body, nil
}

// unwrapEnvelope returns the data member of a {code, message, data} envelope,
// or the body itself when it is not one.
func unwrapEnvelope(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err == nil && len(env.Data) > 0 {
		return bytes.TrimSpace(env.Data)
	}
	return trimmed
}

func decodeList(body []byte, dst any) error {
	data := unwrapEnvelope(body)
	if len(data) == 0 || data[0] != '[' {
		return ErrUnexpectedShape
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

func decodeObject(body []byte, dst any) error {
	data := unwrapEnvelope(body)
	if len(data) == 0 || data[0] != '{' {
		return ErrUnexpectedShape
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}
