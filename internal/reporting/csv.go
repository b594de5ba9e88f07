package reporting

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	s.pendingLines = 0
	return s.buf.Flush()
}

var csvHeader = []string{
	"id", "item_id", "product_name", "vendor_name", "vendor_email", "vendor_phone",
	"quoted_price", "quoted_price_with_gst", "status", "submitted_at", "remarks",
}

// ExportCSV streams every legacy quote as CSV. Multi-item requests are
// deliberately excluded; their per-item columns do not line up with this
// layout.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	quotes, err := s.legacy.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load vendor quotes: %w", err)
	}

	streamer := newCSVStreamer(w)
	if err := streamer.writeRow(csvHeader); err != nil {
		return err
	}

	for _, q := range quotes {
		row := []string{
			q.ID.String(),
			q.ItemID,
			deref(q.ProductName),
			q.VendorName,
			q.VendorEmail,
			deref(q.VendorPhone),
			fmt.Sprintf("%.2f", q.QuotedPrice),
			fmt.Sprintf("%.2f", q.PriceWithGST),
			string(q.Status),
			q.SubmittedAt.UTC().Format(time.RFC3339),
			deref(q.Remarks),
		}
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}

	return streamer.flush()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
