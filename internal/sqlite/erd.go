package sqlite

import (
	"fmt"
	"io"
	"strconv"
)

// WriteERD writes the relation graph as a Graphviz digraph: one node per
// table and one edge per foreign key, labelled with the referencing column,
// drawn bottom-up so referenced tables sit on top.
func (b *Backend) WriteERD(w io.Writer) error {
	return b.run("erd", func() error {
		fks, err := b.foreignKeys()
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintln(w, "digraph ERD {"); err != nil {
			return err
		}
		fmt.Fprintln(w, "  rankdir=BT;")
		for _, t := range b.names {
			fmt.Fprintf(w, "  %s;\n", strconv.Quote(t))
		}
		for _, r := range fks {
			fmt.Fprintf(w, "  %s -> %s [label=%s];\n",
				strconv.Quote(r.LeftTable), strconv.Quote(r.RightTable), strconv.Quote(r.LeftKey))
		}
		_, err = fmt.Fprintln(w, "}")
		return err
	})
}
