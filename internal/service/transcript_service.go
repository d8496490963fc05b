package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/grading"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/export"
)

type transcriptStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(owner, relPath string) (string, time.Time, error)
	Parse(token string) (owner, relPath string, expiresAt time.Time, err error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// TranscriptRequest selects the output format.
type TranscriptRequest struct {
	Format string `json:"format"`
}

// TranscriptResult points at a rendered transcript.
type TranscriptResult struct {
	Format    export.Format `json:"format"`
	URL       string        `json:"url"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// TranscriptFile is an opened transcript ready to stream.
type TranscriptFile struct {
	Body        io.ReadCloser
	Size        int64
	Filename    string
	ContentType string
}

// TranscriptService renders grade transcripts and hands out signed download links.
type TranscriptService struct {
	docs      studentDocuments
	storage   transcriptStorage
	signer    urlSigner
	renderers map[export.Format]tableRenderer
	currency  string
	urlPrefix string
	now       func() time.Time
	logger    *zap.Logger
}

// NewTranscriptService constructs a TranscriptService. urlPrefix is where the
// download route is mounted, e.g. "/api/v1".
func NewTranscriptService(students StudentStore, store transcriptStorage, signer urlSigner, currency, urlPrefix string, metrics *MetricsService, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "JMD"
	}
	return &TranscriptService{
		docs:    studentDocuments{store: students, metrics: metrics, logger: logger},
		storage: store,
		signer:  signer,
		renderers: map[export.Format]tableRenderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(),
		},
		currency:  currency,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		now:       time.Now,
		logger:    logger,
	}
}

// Generate renders the student's transcript, stores it and returns a signed link.
func (s *TranscriptService) Generate(ctx context.Context, studentID string, req TranscriptRequest) (*TranscriptResult, error) {
	format := export.Format(strings.ToLower(strings.TrimSpace(req.Format)))
	if format == "" {
		format = export.FormatPDF
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	student, err := s.docs.load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data, err := s.renderers[format].Render(s.BuildTable(*student))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	filename := path.Join(s.now().UTC().Format("2006/01/02"), uuid.NewString()+"."+string(format))
	stored, err := s.storage.Save(filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store transcript")
	}
	token, expiresAt, err := s.signer.Generate(student.ID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign transcript link")
	}
	s.logger.Info("transcript generated", zap.String("student_id", student.ID), zap.String("format", string(format)), zap.Int("bytes", len(data)))
	return &TranscriptResult{
		Format:    format,
		URL:       fmt.Sprintf("%s/exports/%s", s.urlPrefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the transcript it names.
func (s *TranscriptService) Open(token string) (*TranscriptFile, error) {
	owner, rel, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link is invalid or expired")
	}
	body, err := s.storage.Open(rel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "transcript no longer available")
	}
	size := int64(-1)
	if info, err := body.Stat(); err == nil {
		size = info.Size()
	}
	format := export.Format(strings.TrimPrefix(path.Ext(rel), "."))
	return &TranscriptFile{
		Body:        body,
		Size:        size,
		Filename:    fmt.Sprintf("transcript-%s.%s", owner, format),
		ContentType: format.ContentType(),
	}, nil
}

// BuildTable lays out one row per enrolled subject followed by course averages
// and the ledger standing.
func (s *TranscriptService) BuildTable(student models.StudentData) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Transcript: %s", student.Name),
		Headers: []string{"Course", "Subject", "Classwork", "Exam", "Final", "Comments"},
		Rows:    [][]string{},
	}
	for _, c := range student.Courses {
		for _, subj := range c.Subjects {
			final, _ := subj.Final()
			table.Rows = append(table.Rows, []string{
				c.Name,
				subj.Name,
				classworkCell(subj),
				subj.Grades[models.GradeKeyExam],
				final,
				subj.Comments,
			})
		}
	}
	for _, c := range student.Courses {
		table.Summary = append(table.Summary, fmt.Sprintf("%s average: %s", c.Name, grading.CourseAverage(c.Subjects)))
	}
	table.Summary = append(table.Summary,
		fmt.Sprintf("Total owed: %s %.2f", s.currency, student.TotalOwed),
		fmt.Sprintf("Total paid: %s %.2f", s.currency, student.TotalPaid),
		fmt.Sprintf("Balance: %s %.2f (%s)", s.currency, student.Balance, student.PaymentStatus),
		fmt.Sprintf("Generated %s", s.now().UTC().Format(time.RFC3339)),
	)
	return table
}

func classworkCell(subj models.Subject) string {
	keys := make([]string, 0, len(subj.Grades))
	for k := range subj.Grades {
		if grading.IsClassworkKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+subj.Grades[k])
	}
	return strings.Join(parts, "; ")
}
