package wallet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"svidanie/internal/models"
)

var exportHeader = []string{"ID", "Дата", "Тип", "Сумма", "Валюта", "Статус", "Комиссия", "Описание"}

func exportRow(tx models.Transaction) []string {
	return []string{
		strconv.FormatInt(tx.ID, 10),
		tx.CreatedAt.Format("02.01.2006 15:04"),
		string(tx.Type),
		strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		string(tx.Currency),
		string(tx.Status),
		strconv.FormatFloat(tx.Fee, 'f', 2, 64),
		tx.Description,
	}
}

// ExportCSV пишет историю транзакций в CSV.
func ExportCSV(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for _, tx := range txs {
		if err := cw.Write(exportRow(tx)); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportExcel создает Excel файл с историей транзакций за период
// и возвращает путь к нему.
func ExportExcel(dir string, txs []models.Transaction, from, to time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Транзакции"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, tx := range txs {
		for col, v := range exportRow(tx) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 18)
	_ = f.SetColWidth(sheetName, "C", "H", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("transactions_%s_to_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}
	return filePath, nil
}
