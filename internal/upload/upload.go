// Package upload sends photos straight to object storage. A flow asks the
// API for a presigned PUT URL, uploads the bytes to it without credentials,
// optionally confirms the upload with the API, then re-reads the album.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nuagevault/nuagevault/internal/api"
)

// Step names a stage of the upload flow
type Step string

const (
	StepTicket   Step = "ticket"
	StepTransfer Step = "transfer"
	StepFinalize Step = "finalize"
	StepRefresh  Step = "refresh"
)

// StepError reports the stage at which a flow failed. Its message is the
// underlying error's message, so backend details reach the user verbatim.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// API is the subset of api.Client the flow calls
type API interface {
	RequestUploadTicket(ctx context.Context, req api.UploadTicketRequest) (*api.UploadTicket, error)
	FinalizePhoto(ctx context.Context, photoID string) (*api.Photo, error)
	ListAllPhotos(ctx context.Context, albumID string) ([]api.Photo, error)
}

// Progress receives the bytes sent so far and the total size
type Progress func(sent, total int64)

// FinalizeOutcome records the best-effort finalize call
type FinalizeOutcome struct {
	Attempted bool
	Err       error
}

// Result describes a finished flow
type Result struct {
	Filename    string
	PhotoID     string
	ContentType string
	Size        int64
	Finalize    FinalizeOutcome
	Photos      []api.Photo
}

// Uploader runs upload flows
type Uploader struct {
	api     API
	storage *http.Client
	log     zerolog.Logger
}

// Option configures an Uploader
type Option func(*Uploader)

// WithStorageClient sets the HTTP client used for object storage transfers.
// Its cookie jar, if any, is dropped: presigned URLs are the only credential.
func WithStorageClient(client *http.Client) Option {
	return func(u *Uploader) {
		c := *client
		c.Jar = nil
		u.storage = &c
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(u *Uploader) {
		u.log = log
	}
}

// New creates an Uploader
func New(client API, opts ...Option) *Uploader {
	u := &Uploader{
		api: client,
		storage: &http.Client{
			Timeout: 30 * time.Minute,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload runs one flow for file into albumID.
//
// Ticket and transfer failures abort the flow. A finalize failure is
// recorded in Result.Finalize and the album is still re-read. A refresh
// failure is returned together with the partially filled Result.
func (u *Uploader) Upload(ctx context.Context, albumID string, file *File, progress Progress) (*Result, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	ticket, err := u.api.RequestUploadTicket(ctx, api.UploadTicketRequest{
		AlbumID:     albumID,
		Filename:    file.Name,
		ContentType: contentType,
	})
	if err != nil {
		return nil, &StepError{Step: StepTicket, Err: err}
	}
	if ticket.PutURL == "" {
		return nil, &StepError{Step: StepTicket, Err: errors.New("upload ticket has no upload URL")}
	}

	size, err := u.put(ctx, ticket.PutURL, file, contentType, progress)
	if err != nil {
		return nil, &StepError{Step: StepTransfer, Err: err}
	}

	result := &Result{
		Filename:    file.Name,
		PhotoID:     ticket.PhotoID,
		ContentType: contentType,
		Size:        size,
	}

	if ticket.FinalizeRequired && ticket.PhotoID != "" {
		result.Finalize.Attempted = true
		if _, err := u.api.FinalizePhoto(ctx, ticket.PhotoID); err != nil {
			result.Finalize.Err = err
			u.log.Warn().Err(err).Str("photo_id", ticket.PhotoID).Msg("Finalize failed, server will reconcile")
		}
	}

	photos, err := u.api.ListAllPhotos(ctx, albumID)
	if err != nil {
		return result, &StepError{Step: StepRefresh, Err: err}
	}
	result.Photos = photos

	u.log.Debug().
		Str("album_id", albumID).
		Str("photo_id", result.PhotoID).
		Int64("size", size).
		Msg("Upload complete")

	return result, nil
}

func (u *Uploader) put(ctx context.Context, putURL string, file *File, contentType string, progress Progress) (int64, error) {
	body := file.Body
	size := file.Size
	if size < 0 {
		// presigned PUTs need a Content-Length
		data, err := io.ReadAll(body)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		body = bytes.NewReader(data)
		size = int64(len(data))
	}

	if progress != nil {
		progress(0, size)
		body = &progressReader{r: body, total: size, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := u.storage.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload to storage failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("upload to storage failed with status %d", resp.StatusCode)
	}
	return size, nil
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
