package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-announce-api/internal/models"
	"github.com/noah-isme/sma-announce-api/pkg/export"
	"github.com/noah-isme/sma-announce-api/pkg/storage"
)

// ExportService renders acknowledgement data into CSV or PDF files and
// persists them in local storage.
type ExportService struct {
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	storage *storage.LocalStorage
}

// NewExportService constructs the exporter.
func NewExportService(store *storage.LocalStorage) *ExportService {
	return &ExportService{
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		storage: store,
	}
}

// Generate renders the acknowledgement table for an announcement and
// returns the stored file's relative path.
func (s *ExportService) Generate(jobID string, announcement *models.Announcement, receipts []models.ReadReceipt, format models.AckReportFormat) (string, error) {
	dataset := buildAckDataset(announcement, receipts)

	var payload []byte
	var err error
	var ext string
	switch format {
	case models.AckReportFormatCSV:
		payload, err = s.csv.Render(dataset)
		ext = "csv"
	case models.AckReportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Acknowledgements: %s", announcement.Title))
		ext = "pdf"
	default:
		return "", fmt.Errorf("unsupported ack report format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("render ack report: %w", err)
	}

	relPath := fmt.Sprintf("%s/%s.%s", time.Now().UTC().Format("2006-01"), jobID, ext)
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return "", err
	}
	return relPath, nil
}

func buildAckDataset(announcement *models.Announcement, receipts []models.ReadReceipt) export.Dataset {
	headers := []string{"Announcement", "Circular No", "Viewer", "Read At"}
	circular := ""
	if announcement.CircularNumber != nil {
		circular = *announcement.CircularNumber
	}
	rows := make([]map[string]string, 0, len(receipts))
	for _, receipt := range receipts {
		rows = append(rows, map[string]string{
			"Announcement": announcement.Title,
			"Circular No":  circular,
			"Viewer":       receipt.ViewerID,
			"Read At":      receipt.ReadAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
