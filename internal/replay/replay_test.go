package replay

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/webform-converter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedPart struct {
	name        string
	fileName    string
	contentType string
	body        string
}

// readParts decodes a multipart request body in order.
func readParts(t *testing.T, r *http.Request) []receivedPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(r.Body, params["boundary"])
	var parts []receivedPart
	for {
		p, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, receivedPart{
			name:        p.FormName(),
			fileName:    p.FileName(),
			contentType: p.Header.Get("Content-Type"),
			body:        string(body),
		})
	}
	return parts
}

func legacySchema(target string, fields ...types.FieldSpec) *types.FormSchema {
	all := []types.FieldSpec{{
		Type:         types.KindHidden,
		ID:           1,
		Label:        types.StringPtr(types.LegacyPostURLLabel),
		AdminLabel:   types.LegacyPostURLLabel,
		DefaultValue: types.StringPtr(target),
	}}
	return &types.FormSchema{Title: "Lead", Fields: append(all, fields...)}
}

func TestReplay_DeliversMultipart(t *testing.T) {
	var got []receivedPart
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token", r.Header.Get("X-Crm-Token"))
		contentType = r.Header.Get("Content-Type")
		got = readParts(t, r)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	schema := legacySchema(server.URL,
		types.FieldSpec{Type: types.KindHidden, ID: 2, AdminLabel: types.PublicIDLabel},
		types.FieldSpec{Type: types.KindText, ID: 3, AdminLabel: "lastname"},
		types.FieldSpec{Type: types.KindDate, ID: 4, AdminLabel: "birthday"},
		types.FieldSpec{Type: types.KindCheckbox, ID: 5, AdminLabel: "newsletter"},
	)
	submission := &types.Submission{
		ID: uuid.New(),
		Values: url.Values{
			"input_2":   {"abc123"},
			"input_3":   {"Doe"},
			"input_4":   {"1990", "01", "31"},
			"input_5_1": {"on"},
		},
	}

	opts := DefaultOptions()
	opts.Boundary = "fixed-boundary"
	opts.Headers = map[string]string{"X-Crm-Token": "token"}

	result, err := New(opts).Replay(context.Background(), schema, submission)
	require.NoError(t, err)

	assert.Equal(t, StatusDelivered, result.Status)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "multipart/form-data; boundary=fixed-boundary", contentType)
	assert.Equal(t, []receivedPart{
		{name: types.PublicIDLabel, body: "abc123"},
		{name: "lastname", body: "Doe"},
		{name: "birthday", body: "1990-01-31"},
		{name: "newsletter", body: "1"},
	}, got)
}

func TestReplay_SpamIsSkipped(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	submission := &types.Submission{Status: types.SubmissionStatusSpam}
	result, err := New(nil).Replay(context.Background(), legacySchema(server.URL), submission)

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestReplay_NotLegacyForm(t *testing.T) {
	schema := &types.FormSchema{Title: "Plain", Fields: []types.FieldSpec{{Type: types.KindText, ID: 1, AdminLabel: "name"}}}

	_, err := New(nil).Replay(context.Background(), schema, &types.Submission{})

	assert.ErrorIs(t, err, ErrNotLegacyForm)
}

func TestReplay_Non2xxIsDeliveryError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(nil).Replay(context.Background(), legacySchema(server.URL), &types.Submission{})

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Equal(t, http.StatusInternalServerError, deliveryErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retries")
}

func TestReplay_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL
	server.Close()

	_, err := New(nil).Replay(context.Background(), legacySchema(target), &types.Submission{})

	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Error(t, deliveryErr.Cause)
}

func TestReplay_InsecureSkipVerify(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	_, err := New(nil).Replay(context.Background(), legacySchema(server.URL), &types.Submission{})
	require.Error(t, err)

	opts := DefaultOptions()
	opts.InsecureSkipVerify = true
	result, err := New(opts).Replay(context.Background(), legacySchema(server.URL), &types.Submission{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
}

func TestBuildPayload_Uploads(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uploads/2024/cv.pdf":
			_, _ = w.Write([]byte("%PDF-1.7\n"))
		case "/uploads/2024/photo.png":
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer files.Close()

	schema := legacySchema("https://crm.example.com/capture",
		types.FieldSpec{Type: types.KindFileUpload, ID: 2, AdminLabel: "cv"},
		types.FieldSpec{Type: types.KindFileUpload, ID: 3, AdminLabel: "photo"},
		types.FieldSpec{Type: types.KindFileUpload, ID: 4, AdminLabel: "empty"},
	)
	submission := &types.Submission{Uploads: map[int]string{
		2: files.URL + "/uploads/2024/cv.pdf",
		3: files.URL + "/uploads/2024/photo.png",
	}}

	payload, err := New(nil).BuildPayload(context.Background(), schema, submission)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(payload.Body)))
	req.Header.Set("Content-Type", payload.ContentType)
	got := readParts(t, req)

	assert.Equal(t, []receivedPart{
		{name: "cv", fileName: "cv.pdf", contentType: "application/pdf", body: "%PDF-1.7\n"},
		{name: "photo", fileName: "photo.png", contentType: "image/png", body: "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"},
	}, got)
}

func TestBuildPayload_DownloadFailure(t *testing.T) {
	opts := DefaultOptions()
	opts.Download = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("gone")
	}

	schema := legacySchema("https://crm.example.com/capture",
		types.FieldSpec{Type: types.KindFileUpload, ID: 2, AdminLabel: "cv"})
	submission := &types.Submission{Uploads: map[int]string{2: "https://site/uploads/cv.pdf"}}

	_, err := New(opts).BuildPayload(context.Background(), schema, submission)

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, 2, downloadErr.FieldID)
}

func TestBuildPayload_CustomFormatter(t *testing.T) {
	opts := DefaultOptions()
	opts.Boundary = "b"
	opts.Formatters = map[types.FieldKind]Formatter{
		types.KindPhone: FormatterFunc(func(in FieldInput) (*Part, error) {
			return &Part{Name: in.Field.AdminLabel, Value: strings.ReplaceAll(in.Values.Get(in.Key()), " ", "")}, nil
		}),
	}

	schema := legacySchema("https://crm.example.com/capture",
		types.FieldSpec{Type: types.KindPhone, ID: 2, AdminLabel: "mobile"})
	submission := &types.Submission{Values: url.Values{"input_2": {"+49 170 123"}}}

	payload, err := New(opts).BuildPayload(context.Background(), schema, submission)
	require.NoError(t, err)
	assert.Equal(t, "b", payload.Boundary)
	assert.Contains(t, string(payload.Body), "+49170123")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "cv.pdf", fileName("https://site/wp-content/uploads/gravity_forms/1/cv.pdf"))
	assert.Equal(t, "cv.pdf", fileName("https://site/uploads/cv.pdf?ver=2"))
}
