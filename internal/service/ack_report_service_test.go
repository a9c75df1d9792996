package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-announce-api/internal/dto"
	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/internal/repository"
	appErrors "github.com/noah-isme/sma-announce-api/pkg/errors"
	"github.com/noah-isme/sma-announce-api/pkg/jobs"
	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

type mockAckReportStore struct {
	jobs map[string]*models.AckReportJob
	seq  int
}

func (m *mockAckReportStore) Create(ctx context.Context, job *models.AckReportJob) error {
	if m.jobs == nil {
		m.jobs = make(map[string]*models.AckReportJob)
	}
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	job.CreatedAt = time.Now().UTC()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockAckReportStore) GetByID(ctx context.Context, id string) (*models.AckReportJob, error) {
	if job, ok := m.jobs[id]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAckReportStore) Update(ctx context.Context, id string, params repository.UpdateAckReportParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.StartedAt != nil {
		job.StartedAt = params.StartedAt
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockAckReportStore) ListQueued(ctx context.Context, limit int) ([]models.AckReportJob, error) {
	var queued []models.AckReportJob
	for _, job := range m.jobs {
		if job.Status == models.AckReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *mockAckReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AckReportJob, error) {
	var finished []models.AckReportJob
	for _, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func newAckReportFixture(t *testing.T, announcements *mockAnnouncementRepo, receipts *mockReceiptRepo, queue *recordingQueue) (*AckReportService, *mockAckReportStore) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := &mockAckReportStore{}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewAckReportService(store, announcements, receipts, queue, NewExportService(files), signer, files, nil, AckReportServiceConfig{})
	return svc, store
}

func mustRead(t *testing.T, receipts *mockReceiptRepo, announcementID string, viewers ...string) {
	t.Helper()
	for _, viewer := range viewers {
		_, err := receipts.Insert(context.Background(), announcementID, viewer)
		require.NoError(t, err)
	}
}

func TestAckReportCreateJob(t *testing.T) {
	ann := published("a1", models.ScopeAllStudents)
	ann.RequiresAck = true
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &ann}}
	queue := &recordingQueue{}
	svc, store := newAckReportFixture(t, announcements, &mockReceiptRepo{}, queue)

	resp, err := svc.CreateJob(context.Background(), models.ViewerContext{ID: "admin-1", Role: models.RoleAdmin}, "a1", dto.AckReportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.AckReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Contains(t, store.jobs, resp.ID)
}

func TestAckReportCreateJobValidation(t *testing.T) {
	ann := published("a1", models.ScopeAllStudents)
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &ann}}
	svc, _ := newAckReportFixture(t, announcements, &mockReceiptRepo{}, &recordingQueue{})
	admin := models.ViewerContext{ID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.CreateJob(context.Background(), admin, "a1", dto.AckReportRequest{Format: "XLSX"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// RequiresAck is false on a1.
	_, err = svc.CreateJob(context.Background(), admin, "a1", dto.AckReportRequest{Format: "CSV"})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "requires_ack")

	teacher := models.ViewerContext{ID: "t2", Role: models.RoleTeacher}
	_, err = svc.CreateJob(context.Background(), teacher, "a1", dto.AckReportRequest{Format: "CSV"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAckReportProcessAndDownload(t *testing.T) {
	ann := published("a1", models.ScopeAllStudents)
	ann.RequiresAck = true
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &ann}}
	receipts := &mockReceiptRepo{}
	mustRead(t, receipts, "a1", "s1", "s2")
	queue := &recordingQueue{}
	svc, store := newAckReportFixture(t, announcements, receipts, queue)
	admin := models.ViewerContext{ID: "admin-1", Role: models.RoleAdmin}

	resp, err := svc.CreateJob(context.Background(), admin, "a1", dto.AckReportRequest{Format: "CSV"})
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: resp.ID}))

	stored := store.jobs[resp.ID]
	assert.Equal(t, models.AckReportStatusDone, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.FilePath)

	status, err := svc.GetStatus(context.Background(), admin, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AckReportStatusDone, status.Status)
	require.NotNil(t, status.DownloadURL)

	download, err := svc.ResolveDownload(context.Background(), resp.ID, tokenFromURL(t, *status.DownloadURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.AckReportFormatCSV, download.Format)
}

func TestAckReportStatusOwnerOnly(t *testing.T) {
	ann := published("a1", models.ScopeAllStudents)
	ann.RequiresAck = true
	ann.AuthorID = "t1"
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &ann}}
	svc, _ := newAckReportFixture(t, announcements, &mockReceiptRepo{}, &recordingQueue{})
	author := models.ViewerContext{ID: "t1", Role: models.RoleTeacher}

	resp, err := svc.CreateJob(context.Background(), author, "a1", dto.AckReportRequest{Format: "PDF"})
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), models.ViewerContext{ID: "t9", Role: models.RoleTeacher}, resp.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), author, resp.ID)
	require.NoError(t, err)
}

func TestAckReportDownloadRejectsTamperedToken(t *testing.T) {
	ann := published("a1", models.ScopeAllStudents)
	ann.RequiresAck = true
	announcements := &mockAnnouncementRepo{items: map[string]*models.Announcement{"a1": &ann}}
	receipts := &mockReceiptRepo{}
	mustRead(t, receipts, "a1", "s1")
	svc, _ := newAckReportFixture(t, announcements, receipts, &recordingQueue{})
	admin := models.ViewerContext{ID: "admin-1", Role: models.RoleAdmin}

	resp, err := svc.CreateJob(context.Background(), admin, "a1", dto.AckReportRequest{Format: "CSV"})
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: resp.ID}))

	_, err = svc.ResolveDownload(context.Background(), resp.ID, "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	idx := strings.Index(url, "token=")
	require.GreaterOrEqual(t, idx, 0)
	return url[idx+len("token="):]
}
