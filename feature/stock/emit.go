package stock

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ListColumns is the header of a purchase list.
var ListColumns = []string{"order_qty", "device_id", "device_manufacturer", "device_description", "shop", "shop_id"}

// WriteList writes g as CSV into dir and returns the file path.
func WriteList(dir string, g Group) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, g.File)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ListColumns); err != nil {
		return "", err
	}
	for _, l := range g.Lines {
		rec := []string{strconv.Itoa(l.Quantity), l.DeviceID, l.Manufacturer, l.Description, l.Shop, l.ShopID}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
