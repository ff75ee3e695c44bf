package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/lpmerge/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "history.db"

// HistoryDB provides SQLite-based storage for merged reports.
// Every successful merge is stored with its inputs so earlier results can
// be listed and rendered again.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode as a URI parameter:
	// rw refuses to create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per successful merge
	CREATE TABLE IF NOT EXISTS merges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		function_key TEXT NOT NULL,
		function_name TEXT NOT NULL,
		source_file TEXT NOT NULL,
		def_line INTEGER NOT NULL,
		timer_unit REAL NOT NULL,
		total_time REAL NOT NULL,
		total_hits INTEGER NOT NULL,
		input_count INTEGER NOT NULL,
		source_digest TEXT NOT NULL,
		inputs_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_merges_function ON merges(function_key);
	CREATE INDEX IF NOT EXISTS idx_merges_name ON merges(function_name);
	CREATE INDEX IF NOT EXISTS idx_merges_timestamp ON merges(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// FunctionKey identifies a profiled function across merges.
func FunctionKey(h model.Header) string {
	return h.SourceFile + ":" + h.FunctionName + ":" + strconv.Itoa(h.DefLine)
}

// SaveMerge stores a merged report and returns its ID.
func (hdb *HistoryDB) SaveMerge(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	inputs := report.Sources
	if inputs == nil {
		inputs = []string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize inputs: %w", err)
	}

	query := `
	INSERT INTO merges (
		function_key, function_name, source_file, def_line, timer_unit, total_time,
		total_hits, input_count, source_digest, inputs_json, report_json
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		FunctionKey(report.Header),
		report.FunctionName,
		report.SourceFile,
		report.DefLine,
		report.TimerUnit,
		report.TotalTime,
		report.TotalHits(),
		len(inputs),
		report.SourceDigest(),
		string(inputsJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save merge: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get merge id: %w", err)
	}
	return id, nil
}

// FunctionSummary describes one profiled function in the history.
type FunctionSummary struct {
	// Key is the FunctionKey of the function.
	Key string

	// FunctionName is the profiled function.
	FunctionName string

	// SourceFile is the file the function is defined in.
	SourceFile string

	// DefLine is the definition line of the function.
	DefLine int

	// Merges is the number of stored merges.
	Merges int

	// LastMerged is the time of the most recent merge.
	LastMerged time.Time
}

// ListFunctions returns every function with at least one stored merge,
// ordered by function key.
func (hdb *HistoryDB) ListFunctions(ctx context.Context) ([]FunctionSummary, error) {
	query := `
	SELECT function_key, function_name, source_file, def_line, COUNT(*), MAX(timestamp)
	FROM merges
	GROUP BY function_key
	ORDER BY function_key
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	var functions []FunctionSummary
	for rows.Next() {
		var f FunctionSummary
		var timestamp string
		if err := rows.Scan(&f.Key, &f.FunctionName, &f.SourceFile, &f.DefLine, &f.Merges, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan function: %w", err)
		}
		f.LastMerged = parseTimestamp(timestamp)
		functions = append(functions, f)
	}

	return functions, rows.Err()
}

// MergeMetadata contains summary information about a stored merge.
// This is used for displaying history without loading the full report.
type MergeMetadata struct {
	// ID is the unique identifier of the merge in the database.
	ID int64

	// Key is the FunctionKey of the merged function.
	Key string

	// FunctionName is the merged function.
	FunctionName string

	// TotalTime is the merged total time in seconds.
	TotalTime float64

	// TotalHits is the sum of hits over all lines.
	TotalHits int64

	// Inputs are the report files that were merged, in merge order.
	Inputs []string

	// SourceDigest identifies the source snapshot the reports were taken from.
	SourceDigest string

	// Timestamp is when the merge was stored.
	Timestamp time.Time
}

// GetHistory returns the stored merges of a function, newest first.
// function may be a bare function name or a FunctionKey.
func (hdb *HistoryDB) GetHistory(ctx context.Context, function string) ([]MergeMetadata, error) {
	query := `
	SELECT id, function_key, function_name, total_time, total_hits, inputs_json, source_digest, timestamp
	FROM merges
	WHERE function_name = ? OR function_key = ?
	ORDER BY id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, function, function)
	if err != nil {
		return nil, fmt.Errorf("failed to get merge history: %w", err)
	}
	defer rows.Close()

	var results []MergeMetadata
	for rows.Next() {
		var meta MergeMetadata
		var timestamp, inputsJSON string

		if err := rows.Scan(
			&meta.ID, &meta.Key, &meta.FunctionName, &meta.TotalTime,
			&meta.TotalHits, &inputsJSON, &meta.SourceDigest, &timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		if err := json.Unmarshal([]byte(inputsJSON), &meta.Inputs); err != nil {
			meta.Inputs = []string{}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReportByID retrieves a stored merged report by its database ID.
// It returns nil without an error when no merge has that ID.
func (hdb *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.Report, error) {
	query := `
	SELECT report_json FROM merges
	WHERE id = ?
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merge: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
