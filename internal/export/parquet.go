// Package export archives forecasts, session results and reports as partitioned parquet files.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/chrisdamba/ghostkitchen/internal/cloudwriter"
	"github.com/chrisdamba/ghostkitchen/internal/models"
)

const (
	datasetForecasts = "forecasts"
	datasetSessions  = "sessions"
	datasetReports   = "reports"
	dataFile         = "data.parquet"
	parallelWriters  = 4
)

type partitionWriter struct {
	mu   sync.Mutex
	pw   *writer.ParquetWriter
	file source.ParquetFile
}

// ParquetExporter keeps one open writer per dataset partition until Close.
// With a cloud factory, objects are uploaded under the same relative paths.
type ParquetExporter struct {
	basePath string
	bucket   string
	factory  cloudwriter.CloudWriterFactory
	logger   *slog.Logger

	mu      sync.Mutex
	writers map[string]*partitionWriter
	closed  bool
}

func NewParquetExporter(basePath, bucket string, factory cloudwriter.CloudWriterFactory, logger *slog.Logger) *ParquetExporter {
	return &ParquetExporter{
		basePath: basePath,
		bucket:   bucket,
		factory:  factory,
		logger:   logger,
		writers:  make(map[string]*partitionWriter),
	}
}

// NewFromConfig writes to S3 when a bucket is configured and to the local path otherwise.
func NewFromConfig(ctx context.Context, cfg models.ExportConfig, logger *slog.Logger) (*ParquetExporter, error) {
	if cfg.Format != "" && cfg.Format != "parquet" {
		return nil, fmt.Errorf("%w: unsupported export format %q", models.ErrInvalidArgument, cfg.Format)
	}
	if cfg.S3Bucket == "" {
		return NewParquetExporter(cfg.Path, "", nil, logger), nil
	}
	factory, err := cloudwriter.NewS3WriterFactory(ctx, cfg.S3Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
	}
	return NewParquetExporter(cfg.Path, cfg.S3Bucket, factory, logger), nil
}

func datePartition(t time.Time) string {
	return fmt.Sprintf("year=%d/month=%02d/day=%02d", t.Year(), t.Month(), t.Day())
}

func (p *ParquetExporter) WriteForecasts(_ context.Context, restaurantID string, date time.Time, forecasts []models.HourlyForecast) error {
	if len(forecasts) == 0 {
		return nil
	}
	partition := path.Join(datasetForecasts, "restaurant="+restaurantID, datePartition(date))
	return p.write(partition, new(ForecastRow), forecastRows(restaurantID, date, forecasts))
}

func (p *ParquetExporter) WriteSessionPnL(_ context.Context, session *models.Session, pnl *models.SessionPnL) error {
	if session == nil || pnl == nil {
		return fmt.Errorf("%w: session and pnl are required", models.ErrInvalidArgument)
	}
	partition := path.Join(datasetSessions, "restaurant="+session.RestaurantID, datePartition(session.StartedAt))
	return p.write(partition, new(SessionRow), []any{sessionRow(session, pnl)})
}

func (p *ParquetExporter) WriteReport(_ context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("%w: report is required", models.ErrInvalidArgument)
	}
	partition := path.Join(datasetReports, report.Period, "restaurant="+report.RestaurantID, datePartition(report.Start))
	return p.write(partition, new(ReportRow), reportRows(report))
}

func (p *ParquetExporter) write(partition string, schema any, rows []any) error {
	w, err := p.writerFor(partition, schema)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range rows {
		if err := w.pw.Write(row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", partition, err)
		}
	}
	return nil
}

func (p *ParquetExporter) writerFor(partition string, schema any) (*partitionWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("%w: exporter is closed", models.ErrInvalidState)
	}
	if w, ok := p.writers[partition]; ok {
		return w, nil
	}

	file, err := p.createFile(partition)
	if err != nil {
		return nil, err
	}
	pw, err := writer.NewParquetWriter(file, schema, parallelWriters)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	w := &partitionWriter{pw: pw, file: file}
	p.writers[partition] = w
	return w, nil
}

func (p *ParquetExporter) createFile(partition string) (source.ParquetFile, error) {
	if p.factory != nil {
		objectPath := path.Join(p.basePath, partition, dataFile)
		cw, err := p.factory.NewWriter(p.bucket, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		return NewCloudParquetFile(cw), nil
	}

	dir := filepath.Join(p.basePath, filepath.FromSlash(partition))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	fw, err := local.NewLocalFileWriter(filepath.Join(dir, dataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create local file writer: %w", err)
	}
	return fw, nil
}

// Partitions lists the partitions written so far.
func (p *ParquetExporter) Partitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.writers))
	for k := range p.writers {
		out = append(out, k)
	}
	return out
}

// Close flushes every writer and closes its file. Later writes fail.
func (p *ParquetExporter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var result error
	for key, w := range p.writers {
		w.mu.Lock()
		if err := w.pw.WriteStop(); err != nil {
			p.logger.Error("closing parquet writer", "partition", key, "err", err)
			result = multierror.Append(result, fmt.Errorf("stop writer %s: %w", key, err))
		}
		if err := w.file.Close(); err != nil {
			p.logger.Error("closing parquet file", "partition", key, "err", err)
			result = multierror.Append(result, fmt.Errorf("close file %s: %w", key, err))
		}
		w.mu.Unlock()
	}
	p.logger.Info("export closed", "partitions", len(p.writers), "bucket", p.bucket)
	return result
}

// CloudParquetFile adapts a write-only cloud object to source.ParquetFile.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewCloudParquetFile(cloudWriter cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cloudWriter}
}

// Open and Create return the receiver; the object exists once written.
func (c *CloudParquetFile) Open(string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Create(string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	default:
		return 0, fmt.Errorf("seek whence %d not supported for cloud storage", whence)
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(b []byte) (int, error) {
	n, err := c.cloudWriter.Write(b)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
