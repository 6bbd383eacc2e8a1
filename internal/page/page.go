// Package page provides support for pagination.
package page

import (
	"fmt"
	"math"
	"strconv"
)

const (
	defaultRows = 10
	maxRows     = 100
)

type Page struct {
	Number int
	Rows   int
}

// Offset returns the number of rows to skip before this page starts.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Rows
}

func Parse(pageNumber string, rowsPerPage string) (Page, error) {
	number := 1
	rows := defaultRows

	if pageNumber != "" {
		var err error
		number, err = strconv.Atoi(pageNumber)
		if err != nil {
			return Page{}, fmt.Errorf("converting page number: %w", err)
		}
	}

	if rowsPerPage != "" {
		var err error
		rows, err = strconv.Atoi(rowsPerPage)
		if err != nil {
			return Page{}, fmt.Errorf("converting rows per page: %w", err)
		}
	}

	if number <= 0 {
		return Page{}, fmt.Errorf("%d, value too small, must be greater than 0", number)
	}

	if rows <= 0 {
		return Page{}, fmt.Errorf("%d, value too small, must be greater than 0", rows)
	}

	if rows > maxRows {
		return Page{}, fmt.Errorf("%d, value too big, must be at most %d", rows, maxRows)
	}

	//Offset must stay representable.
	if number-1 > math.MaxInt/rows {
		return Page{}, fmt.Errorf("%d, value too big for %d rows per page", number, rows)
	}

	return Page{Number: number, Rows: rows}, nil
}
