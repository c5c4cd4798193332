package commands

import (
	"io"

	"github.com/candb-tools/candb-go/pkg/candb"
)

// RunDump parses a database file and writes it back out as DBC.
func RunDump(path string, w io.Writer, verbose bool) error {
	db, err := loadDatabase(path, verboseLogger(verbose))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, candb.Marshal(db))
	return err
}
