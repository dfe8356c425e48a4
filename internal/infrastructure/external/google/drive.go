package google

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
	"github.com/seedbridge/crm-portal/pkg/retry"
)

const (
	exportMimeText = "text/plain"

	// maxExportSize caps exported notes text at 5MB.
	maxExportSize = 5 * 1024 * 1024

	DefaultNameMarker = "Notes by Gemini"
	DefaultPageSize   = 50
)

var fileFields = googleapi.Field("nextPageToken, files(id, name, mimeType, createdTime, webViewLink, description, owners(emailAddress))")

// DriveConfig tunes the scanner.
type DriveConfig struct {
	NameMarker string
	PageSize   int64
	Limiter    *RateLimiter
	Retry      []retry.Option
}

// DriveScanner lists a team member's recent meeting recordings and
// generated notes documents.
type DriveScanner struct {
	factory *ClientFactory
	marker  string
	size    int64
	call    caller
	logger  *zap.Logger
}

// NewDriveScanner creates a scanner
func NewDriveScanner(factory *ClientFactory, cfg DriveConfig, logger *zap.Logger) *DriveScanner {
	if cfg.NameMarker == "" {
		cfg.NameMarker = DefaultNameMarker
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(ServiceDrive)
	}
	return &DriveScanner{
		factory: factory,
		marker:  strings.ToLower(cfg.NameMarker),
		size:    cfg.PageSize,
		call:    caller{limiter: cfg.Limiter, retry: cfg.Retry},
		logger:  logger,
	}
}

// Scan returns the first page of files owned by owner and created after
// since, oldest first. A failed listing is logged and yields no files; the
// error is still returned so the caller can count it.
func (s *DriveScanner) Scan(ctx context.Context, ts oauth2.TokenSource, owner string, since time.Time) ([]entities.DriveFile, error) {
	pager, err := s.ScanPages(ctx, ts, owner, since)
	if err != nil {
		s.logger.Error("drive.scan_failed", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}

	files, _, err := pager.Next(ctx)
	if err != nil {
		s.logger.Error("drive.scan_failed", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}
	return files, nil
}

// ScanPages returns a pager over every matching file
func (s *DriveScanner) ScanPages(ctx context.Context, ts oauth2.TokenSource, owner string, since time.Time) (*FilePager, error) {
	svc, err := s.factory.NewDriveService(ctx, ts)
	if err != nil {
		return nil, err
	}
	return &FilePager{
		scanner: s,
		svc:     svc,
		owner:   owner,
		query:   BuildQuery(owner, since),
	}, nil
}

// ExportText exports a Google Doc as plain text
func (s *DriveScanner) ExportText(ctx context.Context, ts oauth2.TokenSource, fileID string) (string, error) {
	svc, err := s.factory.NewDriveService(ctx, ts)
	if err != nil {
		return "", err
	}

	return call(ctx, s.call, func(ctx context.Context) (string, error) {
		resp, err := svc.Files.Export(fileID, exportMimeText).Context(ctx).Download()
		if err != nil {
			return "", fmt.Errorf("export file %s: %w", fileID, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
		if err != nil {
			return "", fmt.Errorf("read export %s: %w", fileID, err)
		}
		return string(data), nil
	})
}

// BuildQuery builds the Drive search expression for a member's recent
// recordings and docs.
func BuildQuery(owner string, since time.Time) string {
	return fmt.Sprintf(
		"(mimeType contains 'video/' or mimeType = '%s') and createdTime > '%s' and '%s' in owners and trashed = false",
		entities.MimeGoogleDoc,
		since.UTC().Format(time.RFC3339),
		escapeQuery(owner),
	)
}

// FilePager walks the listing one page at a time.
type FilePager struct {
	scanner *DriveScanner
	svc     *drive.Service
	owner   string
	query   string
	token   string
	done    bool
}

// Next fetches the next page. The bool reports whether more pages remain.
func (p *FilePager) Next(ctx context.Context) ([]entities.DriveFile, bool, error) {
	if p.done {
		return nil, false, nil
	}

	list, err := call(ctx, p.scanner.call, func(ctx context.Context) (*drive.FileList, error) {
		req := p.svc.Files.List().
			Q(p.query).
			Fields(fileFields).
			OrderBy("createdTime").
			PageSize(p.scanner.size).
			Context(ctx)
		if p.token != "" {
			req = req.PageToken(p.token)
		}
		return req.Do()
	})
	if err != nil {
		return nil, false, fmt.Errorf("list drive files: %w", err)
	}

	p.token = list.NextPageToken
	p.done = p.token == ""

	files := make([]entities.DriveFile, 0, len(list.Files))
	for _, f := range list.Files {
		file := p.scanner.convert(f, p.owner)
		if file.IsNotesDoc() && !strings.Contains(strings.ToLower(file.Name), p.scanner.marker) {
			continue
		}
		files = append(files, file)
	}
	return files, !p.done, nil
}

func (s *DriveScanner) convert(f *drive.File, owner string) entities.DriveFile {
	created, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		s.logger.Warn("drive.bad_created_time", zap.String("file_id", f.Id), zap.String("value", f.CreatedTime))
	}
	if len(f.Owners) > 0 && f.Owners[0].EmailAddress != "" {
		owner = f.Owners[0].EmailAddress
	}
	return entities.DriveFile{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		CreatedTime: created,
		WebViewLink: f.WebViewLink,
		Description: f.Description,
		OwnerEmail:  entities.NormalizeEmail(owner),
	}
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
