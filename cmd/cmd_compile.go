package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dosco/sqlgeo/core"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func compileCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query document to SQL",
		Long: `Compile a YAML query document into a SQL Server statement.

The document names the table, the columns, a filter and the paging:

  table: dbo.roads
  columns: [id, geom]
  where:
    geom: { st_intersects: { wkt: "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))" } }
  limit: 10
  offset: 20

Tables are looked up in the feature type catalog first and read from
the database otherwise.`,
		Args: cobra.NoArgs,
		RunE: cmdCompile,
	}
	c.Flags().StringP("file", "f", "-", "query document, - reads stdin")
	c.Flags().Bool("pretty", false, "one clause per line")
	return c
}

func cmdCompile(c *cobra.Command, args []string) error {
	file, _ := c.Flags().GetString("file")
	pretty, _ := c.Flags().GetBool("pretty")

	doc, err := readInput(c, file)
	if err != nil {
		return err
	}

	q, err := core.ParseQuery(doc)
	if err != nil {
		return errors.Wrap(err, "parsing query document")
	}

	s, err := newService(c)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	ft, err := s.FeatureType(c.Context(), q.Table.String())
	if err != nil {
		return err
	}

	sql, err := s.Dialect().CompileDocument(doc, ft)
	if err != nil {
		return errors.Wrap(err, "compiling query")
	}

	if pretty {
		sql = core.Prettify(sql)
	}
	fmt.Fprintln(c.OutOrStdout(), sql)
	return nil
}

func insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> [column...]",
		Short: "Print the insert statement for a feature table",
		Args:  cobra.MinimumNArgs(1),
		RunE:  cmdInsert,
	}
}

func cmdInsert(c *cobra.Command, args []string) error {
	s, err := newService(c)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	ft, err := s.FeatureType(c.Context(), args[0])
	if err != nil {
		return err
	}

	sql, err := s.Dialect().CompileInsert(ft, args[1:])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), sql)
	return nil
}

func readInput(c *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(c.InOrStdin())
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	return b, nil
}
