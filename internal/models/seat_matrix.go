package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// SeatType represents the positional type of a seat
type SeatType string

const (
	SeatTypeWindow SeatType = "window"
	SeatTypeMiddle SeatType = "middle"
	SeatTypeAisle  SeatType = "aisle"
)

// ValidSeatType reports whether t is one of the known seat types
func ValidSeatType(t SeatType) bool {
	return t == SeatTypeWindow || t == SeatTypeMiddle || t == SeatTypeAisle
}

// Seat is a single seat descriptor inside a bus seat matrix.
// ID is a stable identifier assigned when the matrix is built; Label is the
// human-readable position ("1A").
type Seat struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	IsBlocked bool     `json:"is_blocked"`
	IsAisle   bool     `json:"is_aisle"`
	Type      SeatType `json:"type"`
}

// SeatMatrix maps row label ("1".."N") to column letter to seat. The owning
// Bus is the only writer; all mutations go through the bus repository so the
// version check applies.
type SeatMatrix map[string]map[string]Seat

// SeatOverride replaces the blocked/aisle/type fields of a single seat when a
// layout is created or updated.
type SeatOverride struct {
	IsBlocked bool     `json:"is_blocked"`
	IsAisle   bool     `json:"is_aisle"`
	Type      SeatType `json:"type"`
}

// PositionedSeat annotates a seat with its row/column position
type PositionedSeat struct {
	Row      string `json:"row"`
	Column   string `json:"column"`
	Position string `json:"position"`
	Seat     Seat   `json:"seat"`
}

// SeatMatrixStats summarises a matrix for display
type SeatMatrixStats struct {
	TotalSeats   int              `json:"total_seats"`
	BlockedSeats int              `json:"blocked_seats"`
	AisleSeats   int              `json:"aisle_seats"`
	SeatTypes    map[SeatType]int `json:"seat_types"`
}

var columnPattern = regexp.MustCompile(`^[A-Z]$`)

// ValidateSeatLayout checks the row count and per-row column layouts before a
// matrix is built. Column identifiers must be single uppercase letters.
func ValidateSeatLayout(rows int, columnLayouts [][]string) error {
	if rows <= 0 {
		return BadRequestError("rows must be greater than 0")
	}
	if len(columnLayouts) > rows {
		return BadRequestError("number of rows in column layouts exceeds specified rows")
	}
	for _, layout := range columnLayouts {
		for _, col := range layout {
			if !columnPattern.MatchString(col) {
				return BadRequestError("invalid column identifier: must be a single letter A-Z")
			}
		}
	}
	return nil
}

// BuildSeatMatrix creates a matrix for rows 1..rows. Each row uses its entry
// from columnLayouts when present, otherwise defaultLayout. The first and last
// columns of a row are window seats; inner columns are middle seats flagged as
// aisle-adjacent.
func BuildSeatMatrix(rows int, columnLayouts [][]string, defaultLayout []string) (SeatMatrix, error) {
	if err := ValidateSeatLayout(rows, columnLayouts); err != nil {
		return nil, err
	}
	if len(defaultLayout) == 0 {
		defaultLayout = []string{"A", "B", "C", "D"}
	}
	for _, col := range defaultLayout {
		if !columnPattern.MatchString(col) {
			return nil, BadRequestError("invalid column identifier: must be a single letter A-Z")
		}
	}

	matrix := make(SeatMatrix, rows)
	for row := 1; row <= rows; row++ {
		layout := defaultLayout
		if row <= len(columnLayouts) && len(columnLayouts[row-1]) > 0 {
			layout = columnLayouts[row-1]
		}

		rowLabel := strconv.Itoa(row)
		seen := make(map[string]bool, len(layout))
		rowSeats := make(map[string]Seat, len(layout))
		for i, col := range layout {
			if seen[col] {
				return nil, BadRequestError(fmt.Sprintf("duplicate column %s in row %d", col, row))
			}
			seen[col] = true

			isEdge := i == 0 || i == len(layout)-1
			seatType := SeatTypeMiddle
			if isEdge {
				seatType = SeatTypeWindow
			}
			rowSeats[col] = Seat{
				ID:        uuid.New().String(),
				Label:     rowLabel + col,
				IsBlocked: false,
				IsAisle:   !isEdge,
				Type:      seatType,
			}
		}
		matrix[rowLabel] = rowSeats
	}

	return matrix, nil
}

// ApplySeatTypeOverrides replaces the blocked/aisle/type fields of the seats
// named in overrides. Pairs that reference an absent row or column are
// ignored.
func (m SeatMatrix) ApplySeatTypeOverrides(overrides map[string]map[string]SeatOverride) {
	for row, cols := range overrides {
		rowSeats, ok := m[row]
		if !ok {
			continue
		}
		for col, override := range cols {
			seat, ok := rowSeats[col]
			if !ok {
				continue
			}
			seat.IsBlocked = override.IsBlocked
			seat.IsAisle = override.IsAisle
			seat.Type = override.Type
			rowSeats[col] = seat
		}
	}
}

// Seat returns the seat at the given row and column
func (m SeatMatrix) Seat(row, column string) (Seat, error) {
	rowSeats, ok := m[row]
	if !ok {
		return Seat{}, NotFoundError("seat not found")
	}
	seat, ok := rowSeats[column]
	if !ok {
		return Seat{}, NotFoundError("seat not found")
	}
	return seat, nil
}

// SetSeat replaces the seat at the given row and column
func (m SeatMatrix) SetSeat(row, column string, seat Seat) error {
	rowSeats, ok := m[row]
	if !ok {
		return NotFoundError("seat not found")
	}
	if _, ok := rowSeats[column]; !ok {
		return NotFoundError("seat not found")
	}
	rowSeats[column] = seat
	return nil
}

// FindByID returns the seat with the given id and its position
func (m SeatMatrix) FindByID(seatID string) (PositionedSeat, bool) {
	for _, ps := range m.Flatten() {
		if ps.Seat.ID == seatID {
			return ps, true
		}
	}
	return PositionedSeat{}, false
}

// Flatten returns every seat annotated with its position, ordered by row
// number then column letter. The result is a pure function of the current
// matrix state.
func (m SeatMatrix) Flatten() []PositionedSeat {
	rows := make([]string, 0, len(m))
	for row := range m {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, _ := strconv.Atoi(rows[i])
		b, _ := strconv.Atoi(rows[j])
		return a < b
	})

	var seats []PositionedSeat
	for _, row := range rows {
		cols := make([]string, 0, len(m[row]))
		for col := range m[row] {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			seats = append(seats, PositionedSeat{
				Row:      row,
				Column:   col,
				Position: row + col,
				Seat:     m[row][col],
			})
		}
	}
	return seats
}

// Stats counts seats by state and type
func (m SeatMatrix) Stats() SeatMatrixStats {
	stats := SeatMatrixStats{
		SeatTypes: map[SeatType]int{
			SeatTypeWindow: 0,
			SeatTypeMiddle: 0,
			SeatTypeAisle:  0,
		},
	}
	for _, rowSeats := range m {
		for _, seat := range rowSeats {
			stats.TotalSeats++
			if seat.IsBlocked {
				stats.BlockedSeats++
			}
			if seat.IsAisle {
				stats.AisleSeats++
			}
			stats.SeatTypes[seat.Type]++
		}
	}
	return stats
}

// Clear removes every seat from the matrix
func (m *SeatMatrix) Clear() {
	*m = make(SeatMatrix)
}
