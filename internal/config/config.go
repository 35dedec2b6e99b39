// Package config loads the dashboard's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridhall/ghatz/internal/cache"
	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/store"
	"github.com/gridhall/ghatz/internal/views"
)

const (
	SourceSheets = "sheets"
	SourceCSV    = "csv"

	DefaultSpreadsheet = "GHATZ_Data"
	DefaultRefresh     = "@every 1h"
	DefaultAddr        = ":8080"
)

type Config struct {
	Source      string      `yaml:"source"`
	Spreadsheet Spreadsheet `yaml:"spreadsheet"`
	CSVDir      string      `yaml:"csv_dir"`
	// StoreDSN locates the load audit database. The default keeps it in memory.
	StoreDSN    string      `yaml:"store_dsn"`
	Addr        string      `yaml:"addr"`

	CacheTTL time.Duration `yaml:"cache_ttl"`
	Refresh  string        `yaml:"refresh"`

	AnomalyThreshold float64 `yaml:"anomaly_threshold"`
	RateDayOffset    int     `yaml:"rate_day_offset"`
	WaterLevel       struct {
		MaxYear int `yaml:"max_year"`
	} `yaml:"water_level"`

	// Worksheets and DateOrders are keyed by domain name.
	Worksheets map[string]string `yaml:"worksheets"`
	DateOrders map[string]string `yaml:"date_orders"`

	FTP string `yaml:"ftp"`
}

type Spreadsheet struct {
	Name            string `yaml:"name"`
	ID              string `yaml:"id"`
	CredentialsFile string `yaml:"credentials_file"`
}

func Default() *Config {
	c := &Config{
		Source:           SourceSheets,
		Spreadsheet:      Spreadsheet{Name: DefaultSpreadsheet},
		StoreDSN:         store.DefaultDSN,
		Addr:             DefaultAddr,
		CacheTTL:         cache.DefaultTTL,
		Refresh:          DefaultRefresh,
		AnomalyThreshold: calc.DefaultAnomalyThreshold,
		RateDayOffset:    calc.DefaultRateOptions().DayOffset,
	}
	c.WaterLevel.MaxYear = views.DefaultMaxYear
	return c
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("config: %s not found, using defaults", path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	log.Printf("config: loaded %s", path)
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Source {
	case SourceSheets:
		if c.Spreadsheet.Name == "" && c.Spreadsheet.ID == "" {
			return errors.New("spreadsheet name or id is required")
		}
	case SourceCSV:
		if c.CSVDir == "" {
			return errors.New("csv_dir is required for the csv source")
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative")
	}
	if c.AnomalyThreshold <= 0 {
		return errors.New("anomaly_threshold must be positive")
	}
	if _, err := c.WorksheetNames(); err != nil {
		return err
	}
	if _, err := c.DomainDateOrders(); err != nil {
		return err
	}
	return nil
}

// WorksheetNames returns the worksheet overrides keyed by domain.
func (c *Config) WorksheetNames() (map[models.Domain]string, error) {
	out := make(map[models.Domain]string, len(c.Worksheets))
	for k, v := range c.Worksheets {
		d, ok := models.ParseDomain(k)
		if !ok {
			return nil, fmt.Errorf("worksheets: unknown domain %q", k)
		}
		out[d] = v
	}
	return out, nil
}

// DomainDateOrders returns the date order overrides keyed by domain.
func (c *Config) DomainDateOrders() (map[models.Domain]ingest.DateOrder, error) {
	out := make(map[models.Domain]ingest.DateOrder, len(c.DateOrders))
	for k, v := range c.DateOrders {
		d, ok := models.ParseDomain(k)
		if !ok {
			return nil, fmt.Errorf("date_orders: unknown domain %q", k)
		}
		order, err := ingest.ParseDateOrder(v)
		if err != nil {
			return nil, fmt.Errorf("date_orders: %s: %w", k, err)
		}
		out[d] = order
	}
	return out, nil
}

// ViewOptions returns the metric settings for view builds.
func (c *Config) ViewOptions() views.Options {
	return views.Options{
		AnomalyThreshold: c.AnomalyThreshold,
		Rate:             calc.RateOptions{DayOffset: c.RateDayOffset},
		MaxYear:          c.WaterLevel.MaxYear,
	}
}
