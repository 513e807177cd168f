package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"allrentr/models"
)

// CSVWriter exports nearby results and clusters to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{file: f, writer: csv.NewWriter(f)}, nil
}

// WriteNearby writes one row per hit, nearest first.
func (c *CSVWriter) WriteNearby(result *models.ProximityResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write([]string{
		"rank", "id", "product_name", "category", "city", "pin_code", "rent_price", "distance_m", "source",
	}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for i, h := range result.Hits {
		l := h.Listing
		row := []string{
			strconv.Itoa(i + 1),
			l.ID,
			l.ProductName,
			l.Category,
			l.City,
			l.PinCode,
			strconv.FormatFloat(l.RentPrice, 'f', 2, 64),
			strconv.FormatFloat(h.DistanceMeters, 'f', 0, 64),
			string(result.Source),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// WriteClusters writes one row per cluster with the member ids joined by "|".
func (c *CSVWriter) WriteClusters(mode models.ClusterMode, clusters []models.Cluster) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write([]string{"mode", "key", "label", "count", "listing_ids"}); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, cl := range clusters {
		ids := make([]string, 0, len(cl.Items))
		for _, l := range cl.Items {
			ids = append(ids, l.ID)
		}
		row := []string{string(mode), cl.Key, cl.Label, strconv.Itoa(cl.Count), strings.Join(ids, "|")}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
