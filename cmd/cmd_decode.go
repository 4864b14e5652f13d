package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dosco/sqlgeo/core"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func decodeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a geometry column value and print it as WKT",
		Long: `Decode a geometry column value given in hex, with or without a
0x prefix. Values are WKB unless --native is set.`,
		Args: cobra.ExactArgs(1),
		RunE: cmdDecode,
	}
	c.Flags().Bool("native", false, "value uses the SQL Server serialization format")
	c.Flags().Int("srid", 0, "SRID of WKB values")
	return c
}

func cmdDecode(c *cobra.Command, args []string) error {
	native, _ := c.Flags().GetBool("native")
	srid, _ := c.Flags().GetInt("srid")

	s := strings.TrimSpace(args[0])
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrap(err, "invalid hex value")
	}

	d, err := core.New(core.Config{NativeSerialization: native})
	if err != nil {
		return err
	}

	g, err := d.DecodeGeometry("value", b, srid)
	if err != nil {
		return err
	}
	if g == nil {
		return errors.New("empty value")
	}

	wkt, err := core.WKT(g)
	if err != nil {
		return err
	}

	if g.SRID() != 0 {
		fmt.Fprintf(c.OutOrStdout(), "SRID=%d;%s\n", g.SRID(), wkt)
	} else {
		fmt.Fprintln(c.OutOrStdout(), wkt)
	}
	return nil
}
