package uimf

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/patrickmn/go-cache"
)

// Reader reads drift profiles and frame parameters from a raw-data file.
// It is safe for concurrent use.
type Reader struct {
	db       *sql.DB
	path     string
	binWidth float64
	bins     int
	frames   *cache.Cache // frame number -> FrameParams
}

// Open opens a raw-data file read-only. A missing file yields an error
// wrapping ErrSourceNotFound.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat raw data file: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open raw data file: %w", err)
	}

	r := &Reader{
		db:   db,
		path: path,
		// Frame parameters never change; no expiry and no janitor goroutine.
		frames: cache.New(cache.NoExpiration, 0),
	}

	err = db.QueryRow(`SELECT BinWidth, Bins FROM Global_Parameters LIMIT 1`).Scan(&r.binWidth, &r.bins)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read global parameters from %s: %w", path, err)
	}

	return r, nil
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string {
	return r.path
}

// FrameParams returns the parameters of frame. Results are cached.
func (r *Reader) FrameParams(ctx context.Context, frame int) (FrameParams, error) {
	key := strconv.Itoa(frame)
	if v, ok := r.frames.Get(key); ok {
		return v.(FrameParams), nil
	}

	p := FrameParams{Frame: frame, BinWidth: r.binWidth}
	var pressure sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT FrameType, Scans, CalibrationSlope, CalibrationIntercept, AverageTOFLength, PressureBack
		FROM Frame_Parameters WHERE FrameNum = ?
	`, frame).Scan(&p.FrameType, &p.Scans, &p.CalibrationSlope, &p.CalibrationIntercept, &p.AverageTOFLength, &pressure)
	if errors.Is(err, sql.ErrNoRows) {
		return FrameParams{}, fmt.Errorf("%w: %d", ErrFrameNotFound, frame)
	}
	if err != nil {
		return FrameParams{}, fmt.Errorf("failed to read parameters of frame %d: %w", frame, err)
	}
	if pressure.Valid {
		p.PressureBack = pressure.Float64
	}

	r.frames.Set(key, p, cache.NoExpiration)
	return p, nil
}

// Frames returns the frame numbers of the given frame type in ascending order.
func (r *Reader) Frames(ctx context.Context, frameType int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT FrameNum FROM Frame_Parameters WHERE FrameType = ? ORDER BY FrameNum
	`, frameType)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	defer rows.Close()

	var frames []int
	for rows.Next() {
		var f int
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan frame number: %w", err)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// DriftProfile sums the intensity inside the query's m/z window for every
// drift scan in the frame range. Scans without signal are omitted, so a
// window with no data yields empty slices and a nil error.
func (r *Reader) DriftProfile(ctx context.Context, q ProfileQuery) ([]int, []float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fs.FrameNum, fs.ScanNum, fs.NonZeroCount, fs.Intensities
		FROM Frame_Scans fs
		JOIN Frame_Parameters fp ON fp.FrameNum = fs.FrameNum
		WHERE fs.FrameNum BETWEEN ? AND ?
		  AND fp.FrameType = ?
		  AND fs.ScanNum BETWEEN ? AND ?
	`, q.FrameStart, q.FrameEnd, q.FrameType, q.ScanStart, q.ScanEnd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query drift profile: %w", err)
	}
	defer rows.Close()

	sums := make(map[int]float64)
	for rows.Next() {
		var (
			frame, scan, count int
			blob               []byte
		)
		if err := rows.Scan(&frame, &scan, &count, &blob); err != nil {
			return nil, nil, fmt.Errorf("failed to scan spectrum row: %w", err)
		}

		p, err := r.FrameParams(ctx, frame)
		if err != nil {
			return nil, nil, err
		}
		lo, hi := q.binRange(p)
		v, err := sumSpectrum(blob, count, lo, hi)
		if err != nil {
			return nil, nil, fmt.Errorf("frame %d scan %d: %w", frame, scan, err)
		}
		if v > 0 {
			sums[scan] += v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read drift profile: %w", err)
	}

	scans := make([]int, 0, len(sums))
	for s := range sums {
		scans = append(scans, s)
	}
	sort.Ints(scans)

	intensities := make([]float64, len(scans))
	for i, s := range scans {
		intensities[i] = sums[s]
	}
	return scans, intensities, nil
}

// Close closes the underlying database.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close raw data file: %w", err)
	}
	return nil
}
