package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/calvey/bankgrid/config"
)

// TableSink consumes batches of aggregated metric rows.
type TableSink interface {
	WriteRows(rows []Row) error
}

// SeriesSink consumes a named numeric series, one per combination label,
// for downstream distribution plotting.
type SeriesSink interface {
	WriteSeries(name string, values []float64) error
}

// OutputManager handles structured experiment output with CSV logging.
// It implements TableSink and SeriesSink.
type OutputManager struct {
	dir         string
	resultsFile *os.File
	agentsFile  *os.File

	// Track if headers have been written
	resultsHeaderWritten bool
	agentsHeaderWritten  bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	resultsPath := filepath.Join(dir, "results.csv")
	f, err := os.Create(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("creating results.csv: %w", err)
	}
	om.resultsFile = f

	return om, nil
}

// WriteConfig saves the experiment configuration as YAML next to the
// results, so a run is reproducible from its output directory alone.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteRows appends metric rows to results.csv.
func (om *OutputManager) WriteRows(rows []Row) error {
	if om == nil || len(rows) == 0 {
		return nil
	}

	if !om.resultsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(rows, om.resultsFile); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		om.resultsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, om.resultsFile); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	return nil
}

// WriteAgentRows appends per-agent wealth rows to agents.csv. The file is
// created on first use so runs without agent collection don't leave an
// empty file behind.
func (om *OutputManager) WriteAgentRows(rows []AgentRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}

	if om.agentsFile == nil {
		f, err := os.Create(filepath.Join(om.dir, "agents.csv"))
		if err != nil {
			return fmt.Errorf("creating agents.csv: %w", err)
		}
		om.agentsFile = f
	}

	if !om.agentsHeaderWritten {
		if err := gocsv.Marshal(rows, om.agentsFile); err != nil {
			return fmt.Errorf("writing agents: %w", err)
		}
		om.agentsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, om.agentsFile); err != nil {
			return fmt.Errorf("writing agents: %w", err)
		}
	}

	return nil
}

// WriteSeries writes a named numeric series as <name>.csv, one value per
// line. Plotting layers turn these into per-combination histograms.
func (om *OutputManager) WriteSeries(name string, values []float64) error {
	if om == nil {
		return nil
	}

	f, err := os.Create(filepath.Join(om.dir, name+".csv"))
	if err != nil {
		return fmt.Errorf("creating series %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{name}); err != nil {
		return fmt.Errorf("writing series %s: %w", name, err)
	}
	for _, v := range values {
		if err := w.Write([]string{strconv.FormatFloat(v, 'f', 6, 64)}); err != nil {
			return fmt.Errorf("writing series %s: %w", name, err)
		}
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.resultsFile != nil {
		if err := om.resultsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if om.agentsFile != nil {
		if err := om.agentsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
