package export

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName  = "Registrations"
	dateLayout = "2006-01-02 15:04:05"
)

var Header = []interface{}{
	"Ticket ID", "Name", "Email", "Phone", "College", "Department", "Year", "Event", "Date", "Payment Status",
}

func Row(reg domain.Registration) []interface{} {
	return []interface{}{
		reg.TicketID,
		reg.Name,
		reg.Email,
		reg.Phone,
		reg.College,
		reg.Department,
		reg.Year,
		reg.Event,
		reg.Date.UTC().Format(dateLayout),
		reg.PaymentStatus,
	}
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := setRow(f, 1, Header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, n int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &values)
}

// Write renders every registration as one workbook.
func Write(w io.Writer, regs []domain.Registration) error {
	f, err := newWorkbook()
	if err != nil {
		return errors.Wrap(err, "create workbook")
	}
	defer f.Close()

	for i, reg := range regs {
		if err := setRow(f, i+2, Row(reg)); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	return f.Write(w)
}

// AppendToFile adds rows to the workbook at path, creating it with a header
// row when it does not exist.
func AppendToFile(path string, regs ...domain.Registration) error {
	var (
		f   *excelize.File
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
	} else if errors.Is(statErr, os.ErrNotExist) {
		f, err = newWorkbook()
	} else {
		err = statErr
	}
	if err != nil {
		return errors.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return errors.Wrap(err, "read rows")
	}
	next := len(rows) + 1
	for _, reg := range regs {
		if err := setRow(f, next, Row(reg)); err != nil {
			return errors.Wrap(err, "write row")
		}
		next++
	}
	return f.SaveAs(path)
}
