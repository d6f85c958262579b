package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/iconidentify/streamvault/internal/config"
	"github.com/iconidentify/streamvault/internal/domain"
)

// Load builds the catalog from whichever source cfg selects.
func Load(ctx context.Context, cfg config.CatalogConfig) (*Catalog, error) {
	var (
		entries []domain.CatalogEntry
		err     error
	)
	switch {
	case cfg.Path != "":
		entries, err = LoadFile(cfg.Path)
	case cfg.SQLitePath != "":
		entries, err = LoadSQLite(ctx, cfg.SQLitePath)
	default:
		entries = Default()
	}
	if err != nil {
		return nil, err
	}
	return New(entries)
}

// LoadFile reads a YAML list of entries.
func LoadFile(path string) ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var entries []domain.CatalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return entries, nil
}

const selectVideos = `SELECT id, title, description, thumbnail, duration, year, upstream_ref FROM videos ORDER BY id`

// LoadSQLite reads entries from the videos table of a SQLite database.
func LoadSQLite(ctx context.Context, path string) ([]domain.CatalogEntry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, selectVideos)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var (
			e           domain.CatalogEntry
			description sql.NullString
			thumbnail   sql.NullString
			duration    sql.NullString
			year        sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Title, &description, &thumbnail, &duration, &year, &e.UpstreamRef); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		e.Description = description.String
		e.Thumbnail = thumbnail.String
		e.Duration = duration.String
		e.Year = year.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read catalog rows: %w", err)
	}
	return entries, nil
}

// Default returns the built-in catalog.
func Default() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{
			ID:          "1",
			Title:       "BUCKCHODI Official Video BALI ENZO",
			Description: "Official music video in stunning 1080P HD quality",
			Thumbnail:   "https://img.lulucdn.com/24aafkf8kfvs_t.jpg",
			Duration:    "02:48",
			Year:        "2024",
			UpstreamRef: "24aafkf8kfvs",
		},
		{
			ID:          "2",
			Title:       "Ocean Dreams",
			Description: "Dive into the deep blue sea and discover marine wonders",
			Thumbnail:   "https://images.unsplash.com/photo-1518837695005-2083093ee35b?w=800&q=80",
			Duration:    "03:45",
			Year:        "2024",
			UpstreamRef: "24aafkf8kfvs",
		},
		{
			ID:          "3",
			Title:       "Mountain Peaks",
			Description: "Conquer the highest summits with extreme adventurers",
			Thumbnail:   "https://images.unsplash.com/photo-1464822759023-fed622ff2c3b?w=800&q=80",
			Duration:    "04:12",
			Year:        "2023",
			UpstreamRef: "24aafkf8kfvs",
		},
		{
			ID:          "4",
			Title:       "Urban Nights",
			Description: "City lights and nightlife from around the world",
			Thumbnail:   "https://images.unsplash.com/photo-1514565131-fce0801e5785?w=800&q=80",
			Duration:    "03:58",
			Year:        "2024",
			UpstreamRef: "24aafkf8kfvs",
		},
		{
			ID:          "5",
			Title:       "Forest Whispers",
			Description: "Ancient trees and hidden paths in mystical forests",
			Thumbnail:   "https://images.unsplash.com/photo-1448375240586-882707db888b?w=800&q=80",
			Duration:    "05:17",
			Year:        "2023",
			UpstreamRef: "24aafkf8kfvs",
		},
		{
			ID:          "6",
			Title:       "Desert Storm",
			Description: "Sand dunes and endless horizons of the Sahara",
			Thumbnail:   "https://images.unsplash.com/photo-1509316785289-025f5b846b35?w=800&q=80",
			Duration:    "04:55",
			Year:        "2024",
			UpstreamRef: "24aafkf8kfvs",
		},
	}
}
