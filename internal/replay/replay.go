// Package replay forwards form submissions to the legacy CRM endpoint as
// multipart/form-data.
package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/webform-converter/internal/fetch"
	"github.com/jonathan/webform-converter/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds the delivery request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxConcurrentDownloads bounds parallel upload downloads.
const DefaultMaxConcurrentDownloads = 4

// DownloadFunc retrieves the content of an uploaded file.
type DownloadFunc func(ctx context.Context, fileURL string) ([]byte, error)

// Options configures the Replayer.
type Options struct {
	Timeout time.Duration
	// Boundary overrides the random multipart boundary.
	Boundary string
	// Headers are added to the delivery request.
	Headers map[string]string
	// InsecureSkipVerify disables TLS verification for the legacy endpoint
	// and upload downloads.
	InsecureSkipVerify bool
	// Formatters override the per-kind formatting.
	Formatters             map[types.FieldKind]Formatter
	MaxConcurrentDownloads int
	// Download replaces the HTTP download of uploads.
	Download DownloadFunc
}

// DefaultOptions returns the default replay options.
func DefaultOptions() *Options {
	return &Options{
		Timeout:                DefaultTimeout,
		MaxConcurrentDownloads: DefaultMaxConcurrentDownloads,
	}
}

// Status is the outcome of a replay.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusSkipped   Status = "skipped"
)

// Result describes a replay attempt.
type Result struct {
	Status     Status `json:"status"`
	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Payload is an assembled multipart body.
type Payload struct {
	Body        []byte
	ContentType string
	Boundary    string
}

// Replayer posts submissions to the legacy endpoint stored in the form.
type Replayer struct {
	opts       Options
	client     *http.Client
	formatters map[types.FieldKind]Formatter
}

// New creates a Replayer. A nil opts uses DefaultOptions.
func New(opts *Options) *Replayer {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxConcurrentDownloads <= 0 {
		o.MaxConcurrentDownloads = DefaultMaxConcurrentDownloads
	}

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.Timeout = o.Timeout
	fetchOpts.InsecureSkipVerify = o.InsecureSkipVerify
	if o.Download == nil {
		o.Download = func(ctx context.Context, fileURL string) ([]byte, error) {
			return fetch.Bytes(ctx, fileURL, fetchOpts)
		}
	}

	formatters := DefaultFormatters()
	for kind, f := range o.Formatters {
		formatters[kind] = f
	}

	return &Replayer{
		opts:       o,
		client:     fetchOpts.Client(),
		formatters: formatters,
	}
}

// Replay delivers the submission to the form's legacy endpoint. Spam entries
// are skipped without any network call. There is a single attempt.
func (r *Replayer) Replay(ctx context.Context, schema *types.FormSchema, submission *types.Submission) (*Result, error) {
	if submission.IsSpam() {
		log.Printf("[REPLAY] Skipping spam submission %s", submission.ID)
		return &Result{Status: StatusSkipped}, nil
	}

	target, ok := schema.LegacyPostURL()
	if !ok {
		return nil, ErrNotLegacyForm
	}

	payload, err := r.BuildPayload(ctx, schema, submission)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload.Body))
	if err != nil {
		return nil, &DeliveryError{URL: target, Cause: err}
	}
	req.Header.Set("Content-Type", payload.ContentType)
	for key, value := range r.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &DeliveryError{URL: target, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DeliveryError{URL: target, StatusCode: resp.StatusCode}
	}

	log.Printf("[REPLAY] Delivered submission %s to %s (HTTP %d)", submission.ID, target, resp.StatusCode)
	return &Result{Status: StatusDelivered, URL: target, StatusCode: resp.StatusCode}, nil
}

// BuildPayload renders every field except the legacy URL field as a
// multipart part named by its admin label, in field order.
func (r *Replayer) BuildPayload(ctx context.Context, schema *types.FormSchema, submission *types.Submission) (*Payload, error) {
	files, err := r.downloadUploads(ctx, schema, submission)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if r.opts.Boundary != "" {
		if err := writer.SetBoundary(r.opts.Boundary); err != nil {
			return nil, fmt.Errorf("invalid multipart boundary: %w", err)
		}
	}

	values := submission.Values
	if values == nil {
		values = url.Values{}
	}

	for _, field := range schema.Fields {
		if field.AdminLabel == types.LegacyPostURLLabel {
			continue
		}

		formatter, ok := r.formatters[field.Type]
		if !ok {
			formatter = TextFormatter
		}

		part, err := formatter.Format(FieldInput{Field: field, Values: values, File: files[field.ID]})
		if err != nil {
			return nil, &FormatError{FieldID: field.ID, Cause: err}
		}
		if part == nil {
			continue
		}
		if err := writePart(writer, part); err != nil {
			return nil, fmt.Errorf("failed to write multipart field %q: %w", part.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return &Payload{
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
		Boundary:    writer.Boundary(),
	}, nil
}

func writePart(writer *multipart.Writer, part *Part) error {
	if !part.IsFile() {
		return writer.WriteField(part.Name, part.Value)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(part.Name), escapeQuotes(part.FileName)))
	header.Set("Content-Type", part.ContentType)

	w, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = w.Write(part.Content)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// downloadUploads fetches every stored upload concurrently, keyed by field id.
func (r *Replayer) downloadUploads(ctx context.Context, schema *types.FormSchema, submission *types.Submission) (map[int]*File, error) {
	files := make(map[int]*File)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrentDownloads)

	for _, field := range schema.Fields {
		if field.Type != types.KindFileUpload {
			continue
		}
		fileURL := submission.Uploads[field.ID]
		if fileURL == "" {
			continue
		}

		fieldID := field.ID
		g.Go(func() error {
			content, err := r.opts.Download(gctx, fileURL)
			if err != nil {
				return &DownloadError{FieldID: fieldID, URL: fileURL, Cause: err}
			}
			mu.Lock()
			files[fieldID] = &File{Name: fileName(fileURL), Content: content}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// fileName returns the last path segment of the upload URL.
func fileName(fileURL string) string {
	if parsed, err := url.Parse(fileURL); err == nil && parsed.Path != "" {
		return path.Base(parsed.Path)
	}
	return path.Base(fileURL)
}
