package service

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

func TestExportServiceGenerateCSV(t *testing.T) {
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewExportService(files)

	circular := "CIRC-42"
	ann := published("a1", models.ScopeAllStudents)
	ann.Title = "Fee reminder"
	ann.CircularNumber = &circular
	readAt := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	receipts := []models.ReadReceipt{
		{AnnouncementID: "a1", ViewerID: "s1", ReadAt: readAt},
		{AnnouncementID: "a1", ViewerID: "s2", ReadAt: readAt.Add(time.Minute)},
	}

	relPath, err := svc.Generate("job-1", &ann, receipts, models.AckReportFormatCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, "job-1.csv"))

	raw, err := os.ReadFile(files.Path(relPath))
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "Announcement")
	assert.Contains(t, content, "Fee reminder")
	assert.Contains(t, content, "CIRC-42")
	assert.Contains(t, content, "s1")
	assert.Contains(t, content, "2026-08-20T09:30:00Z")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(files)

	ann := published("a1", models.ScopeAllStudents)
	receipts := []models.ReadReceipt{{AnnouncementID: "a1", ViewerID: "s1", ReadAt: time.Now().UTC()}}

	relPath, err := svc.Generate("job-2", &ann, receipts, models.AckReportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(relPath, "job-2.pdf"))

	info, err := os.Stat(files.Path(relPath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(files)

	ann := published("a1", models.ScopeAllStudents)
	_, err = svc.Generate("job-3", &ann, nil, models.AckReportFormat("XLSX"))
	require.Error(t, err)
}
