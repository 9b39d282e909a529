package cmd

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/mcsas3/mcsas3-go/mcerr"
	"github.com/mcsas3/mcsas3-go/measdata"
)

// readCSVData loads a minimal three-column (Q, I, ISigma) CSV file. The
// richer PDH/NeXus readers stay external to this module (spec Non-goals);
// this is the seam a real loader would replace.
func readCSVData(filename string) (measdata.MeasData, error) {
	f, err := os.Open(filename)
	if err != nil {
		return measdata.MeasData{}, mcerr.New(mcerr.ConfigInvalid, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	r.Comment = '#'

	records, err := r.ReadAll()
	if err != nil {
		return measdata.MeasData{}, mcerr.New(mcerr.DataInvalid, err)
	}

	q := make([]float64, 0, len(records))
	i := make([]float64, 0, len(records))
	iSigma := make([]float64, 0, len(records))
	for _, rec := range records {
		qv, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return measdata.MeasData{}, mcerr.New(mcerr.DataInvalid, err)
		}
		iv, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return measdata.MeasData{}, mcerr.New(mcerr.DataInvalid, err)
		}
		sv, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return measdata.MeasData{}, mcerr.New(mcerr.DataInvalid, err)
		}
		q = append(q, qv)
		i = append(i, iv)
		iSigma = append(iSigma, sv)
	}

	return measdata.New(q, i, iSigma)
}
