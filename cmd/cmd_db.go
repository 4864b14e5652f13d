package main

import (
	"fmt"

	"github.com/dosco/sqlgeo/core"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func sridCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "srid <table> <column>",
		Short: "Resolve the SRID and dimension of a geometry column",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdSRID,
	}
}

func cmdSRID(c *cobra.Command, args []string) error {
	s, err := newService(c)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	db, err := s.DB(c.Context())
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	t := core.ParseTable(args[0])
	if t.Schema == "" {
		t.Schema = conf.DB.Schema
	}
	ft := &core.FeatureType{Schema: t.Schema, Name: t.Name}

	m, err := s.Dialect().ResolveGeometry(c.Context(), db, ft, args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(c.OutOrStdout(), "srid: %d\ndimension: %d\nsource: %s\n",
		m.SRID, m.Dimension, m.Source)
	return nil
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Print a feature type as a catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdDescribe,
	}
}

func cmdDescribe(c *cobra.Command, args []string) error {
	s, err := newService(c)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	ft, err := s.FeatureType(c.Context(), args[0])
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(c.OutOrStdout())
	enc.SetIndent(2)

	if err := enc.Encode(core.Catalog{FeatureTypes: []core.FeatureType{*ft}}); err != nil {
		return err
	}
	return enc.Close()
}
