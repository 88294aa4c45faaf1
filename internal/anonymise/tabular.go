package anonymise

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx/v3"
)

// columnSet resolves the user's column selection against a header row.
// Empty selection means every column.
type columnSet struct {
	all     bool
	indices map[int]bool
}

func newColumnSet(header []string, columns []string) columnSet {
	if len(columns) == 0 {
		return columnSet{all: true}
	}
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
	}
	s := columnSet{indices: make(map[int]bool)}
	for i, h := range header {
		if want[h] {
			s.indices[i] = true
		}
	}
	return s
}

func (s columnSet) has(i int) bool { return s.all || s.indices[i] }

// CSV anonymises the selected columns of a CSV stream. The first row is
// treated as a header and passed through unchanged.
func (a *Anonymiser) CSV(ctx context.Context, r io.Reader, w io.Writer, columns []string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cw := csv.NewWriter(w)

	header, err := cr.Read()
	if err == io.EOF {
		cw.Flush()
		return 0, cw.Error()
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	cols := newColumnSet(header, columns)
	cells := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cells, fmt.Errorf("read row: %w", err)
		}
		for i := range row {
			if !cols.has(i) {
				continue
			}
			out, spans, err := a.Text(ctx, row[i])
			if err != nil {
				return cells, err
			}
			if len(spans) > 0 {
				row[i] = out
				cells++
			}
		}
		if err := cw.Write(row); err != nil {
			return cells, fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cells, cw.Error()
}

// CSVFile anonymises a CSV file into a new file.
func (a *Anonymiser) CSVFile(ctx context.Context, inPath, outPath string, columns []string) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	cells, err := a.CSV(ctx, in, out, columns)
	if err != nil {
		out.Close()
		return cells, err
	}
	return cells, out.Close()
}

// XLSXFile anonymises every sheet of a workbook into a new file. Column
// selection matches each sheet's first row.
func (a *Anonymiser) XLSXFile(ctx context.Context, inPath, outPath string, columns []string) (int, error) {
	wb, err := xlsx.OpenFile(inPath)
	if err != nil {
		return 0, fmt.Errorf("open xlsx: %w", err)
	}

	cells := 0
	for _, sheet := range wb.Sheets {
		n, err := a.anonymiseSheet(ctx, sheet, columns)
		if err != nil {
			return cells, fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
		cells += n
	}

	if err := wb.Save(outPath); err != nil {
		return cells, fmt.Errorf("save xlsx: %w", err)
	}
	logrus.WithFields(logrus.Fields{"file": outPath, "cells": cells}).Info("workbook anonymised")
	return cells, nil
}

func (a *Anonymiser) anonymiseSheet(ctx context.Context, sheet *xlsx.Sheet, columns []string) (int, error) {
	var header []string
	var cols columnSet
	cells := 0

	rowIdx := 0
	err := sheet.ForEachRow(func(row *xlsx.Row) error {
		defer func() { rowIdx++ }()
		if rowIdx == 0 {
			row.ForEachCell(func(c *xlsx.Cell) error {
				header = append(header, c.Value)
				return nil
			})
			cols = newColumnSet(header, columns)
			return nil
		}

		colIdx := 0
		return row.ForEachCell(func(c *xlsx.Cell) error {
			defer func() { colIdx++ }()
			if !cols.has(colIdx) {
				return nil
			}
			out, spans, err := a.Text(ctx, c.Value)
			if err != nil {
				return err
			}
			if len(spans) > 0 {
				c.SetString(out)
				cells++
			}
			return nil
		})
	})
	return cells, err
}
