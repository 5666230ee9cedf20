package uimf

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Writer creates raw-data files. It is used to build fixtures and to
// export simulated acquisitions.
type Writer struct {
	db        *sql.DB
	frameStmt *sql.Stmt
	scanStmt  *sql.Stmt
}

// NewWriter creates a raw-data file at path with the given global TOF bin
// width (nanoseconds) and bin count.
func NewWriter(path string, binWidth float64, bins int) (*Writer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{db: db}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`INSERT INTO Global_Parameters (BinWidth, Bins) VALUES (?, ?)`, binWidth, bins); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert global parameters: %w", err)
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the raw-data schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Global_Parameters (
		BinWidth DOUBLE NOT NULL,
		Bins INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS Frame_Parameters (
		FrameNum INTEGER PRIMARY KEY,
		FrameType INTEGER NOT NULL,
		Scans INTEGER NOT NULL,
		CalibrationSlope DOUBLE,
		CalibrationIntercept DOUBLE,
		AverageTOFLength DOUBLE,
		PressureBack DOUBLE
	);

	CREATE TABLE IF NOT EXISTS Frame_Scans (
		FrameNum INTEGER NOT NULL,
		ScanNum INTEGER NOT NULL,
		NonZeroCount INTEGER NOT NULL,
		Intensities BLOB,
		PRIMARY KEY (FrameNum, ScanNum)
	);
	`

	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (w *Writer) prepareStatements() error {
	var err error

	w.frameStmt, err = w.db.Prepare(`
		INSERT INTO Frame_Parameters (
			FrameNum, FrameType, Scans, CalibrationSlope, CalibrationIntercept,
			AverageTOFLength, PressureBack
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare frame statement: %w", err)
	}

	w.scanStmt, err = w.db.Prepare(`
		INSERT INTO Frame_Scans (FrameNum, ScanNum, NonZeroCount, Intensities)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scan statement: %w", err)
	}

	return nil
}

// WriteFrame writes the parameters of one frame. BinWidth is ignored; the
// global bin width applies to every frame.
func (w *Writer) WriteFrame(p FrameParams) error {
	_, err := w.frameStmt.Exec(
		p.Frame,
		p.FrameType,
		p.Scans,
		p.CalibrationSlope,
		p.CalibrationIntercept,
		p.AverageTOFLength,
		p.PressureBack,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame %d: %w", p.Frame, err)
	}
	return nil
}

// WriteScan writes the non-zero bins of one drift scan.
func (w *Writer) WriteScan(frame, scan int, bins, intensities []int) error {
	blob, err := encodeSpectrum(bins, intensities)
	if err != nil {
		return fmt.Errorf("frame %d scan %d: %w", frame, scan, err)
	}
	if _, err := w.scanStmt.Exec(frame, scan, len(bins), blob); err != nil {
		return fmt.Errorf("failed to insert frame %d scan %d: %w", frame, scan, err)
	}
	return nil
}

// Close finalizes statements and closes the database.
func (w *Writer) Close() error {
	if w.frameStmt != nil {
		w.frameStmt.Close()
	}
	if w.scanStmt != nil {
		w.scanStmt.Close()
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
