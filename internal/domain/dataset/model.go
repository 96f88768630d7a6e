package dataset

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/emmanuel-123tech/africareai/internal/domain/forecast"
)

// Cell holds one parsed value, numeric when the source text parsed as a
// float and a string otherwise.
type Cell struct {
	num   float64
	str   string
	isNum bool
}

func Number(v float64) Cell { return Cell{num: v, isNum: true} }

func Text(s string) Cell { return Cell{str: s} }

// Float returns the numeric value and whether the cell is numeric.
func (c Cell) Float() (float64, bool) { return c.num, c.isNum }

func (c Cell) IsNumber() bool { return c.isNum }

func (c Cell) String() string {
	if c.isNum {
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	}
	return c.str
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.isNum {
		return json.Marshal(c.num)
	}
	return json.Marshal(c.str)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Number(f)
	return nil
}

type Row map[string]Cell

// Parsed is a header list plus rows keyed by header.
type Parsed struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

type Insight struct {
	Label  string   `json:"label"`
	Value  float64  `json:"value"`
	Change *float64 `json:"change,omitempty"`
}

type Analysis struct {
	Insights    []Insight        `json:"insights"`
	LineSeries  []forecast.Point `json:"line_series"`
	NextQuarter float64          `json:"next_quarter"`
	Narrative   string           `json:"narrative"`
}
