package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/comalice/tesmx/examples/trafficlight"
	"github.com/comalice/tesmx/internal/primitives"
	"github.com/comalice/tesmx/internal/production"
)

func newShapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shape",
		Short: "Print the traffic light shape as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := trafficlight.Shape
			out, err := primitives.Shape{
				Version:  s.Version,
				Name:     s.Name,
				States:   s.States.Tags(),
				Messages: s.Messages.Tags(),
				Commands: s.Commands.Tags(),
			}.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newDotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot",
		Short: "Print the traffic light transition table as Graphviz DOT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := trafficlight.New(time.Now().UnixMilli())
			if err != nil {
				return err
			}
			initial, _ := m.Initial()
			var v production.Visualizer
			_, err = fmt.Fprint(cmd.OutOrStdout(), v.ExportDOT(m.Table(), nil, initial.Tag()))
			return err
		},
	}
}
