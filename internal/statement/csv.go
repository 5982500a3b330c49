package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/monedero-dev/monedero/internal/model"
)

// Header is the CSV header of a movement statement.
const Header = "seq,date,kind,amount"

const (
	numFields = 4
	colSeq    = 0
	colDate   = 1
	colKind   = 2
	colAmount = 3
)

// WriteMovements writes a statement (including header) for movements in log order.
func WriteMovements(w io.Writer, movements []model.Movement) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, m := range movements {
		if err := cw.Write(MarshalMovement(i+1, m)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalMovement converts a Movement to a CSV row; seq is its 1-based position in the log.
func MarshalMovement(seq int, m model.Movement) []string {
	row := make([]string, numFields)
	row[colSeq] = strconv.Itoa(seq)
	row[colDate] = m.Date.Format(model.DateFormat)
	row[colKind] = string(m.Kind)
	row[colAmount] = m.Amount.StringFixed(2)
	return row
}
